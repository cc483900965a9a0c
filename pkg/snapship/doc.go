// Package snapship provides an embeddable periodic snapshot scheduler.
//
// Snapship takes a full copy of a dataset on a fixed interval and writes it
// to a timestamped JSON file. At most one snapshot is in progress at a time;
// ticks that fire while one is running are skipped, and when too many ticks
// in a row are skipped the scheduler stops itself and reports a fault.
//
// # Basic Usage
//
//	cfg := snapship.DefaultConfig()
//	cfg.Dir = "/var/lib/myapp/backups"
//
//	s, err := snapship.New(cfg, snapship.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := s.Start(ctx, snapship.SupplierFunc(loadEntities)); err != nil {
//	    log.Fatal(err)
//	}
//
//	select {
//	case <-ctx.Done():
//	case err := <-s.Faults():
//	    log.Printf("snapshots stopped: %v", err)
//	}
//	_ = s.Stop()
//
// # Event Handling
//
// Implement [EventHandler], or embed [BaseEventHandler] to handle a subset,
// and pass it via [WithEventHandler]. Events are delivered one at a time in
// the order the scheduler decided them.
//
// # Reports
//
// [Snapship.Report] aggregates every snapshot in the directory: file count,
// the latest file, how many snapshots each entity id appears in, and the
// average and total entity counts.
package snapship
