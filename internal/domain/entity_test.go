package domain

import (
	"encoding/json"
	"testing"
)

func TestEntity_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Entity
		wantErr bool
	}{
		{
			name:  "canonical fields",
			input: `{"id":"a1","name":"Alice","age":20,"group":1}`,
			want:  Entity{ID: "a1", Name: "Alice", Age: 20, Group: 1},
		},
		{
			name:  "legacy group_num",
			input: `{"id":"b2","name":"Bob","age":22,"group_num":3}`,
			want:  Entity{ID: "b2", Name: "Bob", Age: 22, Group: 3},
		},
		{
			name:  "group wins over group_num",
			input: `{"id":"c3","name":"Cy","age":30,"group":4,"group_num":9}`,
			want:  Entity{ID: "c3", Name: "Cy", Age: 30, Group: 4},
		},
		{
			name:  "numeric id",
			input: `{"id":42,"name":"Num","age":18,"group":2}`,
			want:  Entity{ID: "42", Name: "Num", Age: 18, Group: 2},
		},
		{
			name:  "extra fields dropped",
			input: `{"id":"d4","name":"Dee","age":19,"group":2,"user_id":"u1"}`,
			want:  Entity{ID: "d4", Name: "Dee", Age: 19, Group: 2},
		},
		{
			name:    "object id",
			input:   `{"id":{"x":1},"name":"Bad"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Entity
			err := json.Unmarshal([]byte(tt.input), &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Unmarshal() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
