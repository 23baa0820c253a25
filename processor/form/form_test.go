package form

import (
	"context"
	"net/http"
	"testing"

	"github.com/TincheHK/prefw/workflow"
)

func TestForm(t *testing.T) {
	for _, tc := range []struct {
		name     string
		settings map[string]interface{}
		params   map[string]interface{}
		data     map[string]interface{}
		wantErr  bool
		want     map[string]interface{}
	}{
		{
			name:   "stores all params",
			params: map[string]interface{}{"item": "desk", "qty": float64(2)},
			want:   map[string]interface{}{"item": "desk", "qty": float64(2)},
		},
		{
			name:     "field filter",
			settings: map[string]interface{}{"fields": []interface{}{"item"}},
			params:   map[string]interface{}{"item": "desk", "admin": true},
			want:     map[string]interface{}{"item": "desk"},
		},
		{
			name:     "required present from earlier step",
			settings: map[string]interface{}{"required": []interface{}{"item", "qty"}},
			params:   map[string]interface{}{"qty": float64(1)},
			data:     map[string]interface{}{"item": "desk"},
			want:     map[string]interface{}{"item": "desk", "qty": float64(1)},
		},
		{
			name:     "required missing",
			settings: map[string]interface{}{"required": []interface{}{"item"}},
			params:   map[string]interface{}{"item": ""},
			wantErr:  true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ds := workflow.NewDataStore(tc.data)
			task := &workflow.TaskInstance{Settings: tc.settings}
			x := workflow.NewExecution(task, ds, nil, http.MethodPost, tc.params)
			promise, err := New().Process(context.Background(), x)
			if promise != nil {
				t.Fatal("expected no promise")
			}
			if tc.wantErr {
				te := workflow.AsTaskError(err)
				if te == nil || te.Code != http.StatusBadRequest {
					t.Fatalf("have %v, want task error with code %d", err, http.StatusBadRequest)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			have := ds.Map()
			if len(have) != len(tc.want) {
				t.Fatalf("data store: have %v, want %v", have, tc.want)
			}
			for k, v := range tc.want {
				if have[k] != v {
					t.Errorf("%s: have %v, want %v", k, have[k], v)
				}
			}
		})
	}
}
