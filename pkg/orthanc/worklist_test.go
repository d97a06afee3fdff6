package orthanc

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorklistFind(t *testing.T) {
	b, err := json.Marshal(NewWorklistFind("20250101", "20250131"))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"Level": "WorkList",
		"Query": {
			"ScheduledProcedureStepSequence": {"Sequence": [{"ScheduledProcedureStepStartDate": "20250101-20250131"}]},
			"PatientName": "",
			"PatientID": "",
			"AccessionNumber": "",
			"RequestedProcedureDescription": "",
			"StudyInstanceUID": ""
		}
	}`, string(b))

	q := NewWorklistFind("", "")
	seq := q.Query["ScheduledProcedureStepSequence"].(map[string]interface{})["Sequence"].([]map[string]interface{})
	assert.Equal(t, "", seq[0]["ScheduledProcedureStepStartDate"])
}

func TestFindWorklists(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/modalities/mwl/find-worklist", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req FindRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "WorkList", req.Level)
		w.Write([]byte(`["abc", {"ID":"def","PatientName":"Roe^Rick","ScheduledProcedureStepSequence":[{"Modality":"CT"}]}, "gone"]`))
	})
	mux.HandleFunc("/instances/abc/simplified-tags", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"PatientName": "Doe^Jane",
			"PatientID": "P1",
			"AccessionNumber": "A1",
			"RequestedProcedureDescription": "Cardiac Echo",
			"ScheduledProcedureStepSequence": [{
				"ScheduledProcedureStepStartDate": "20250430",
				"ScheduledProcedureStepStartTime": "095939",
				"Modality": "US"
			}]
		}`))
	})
	c := newClient(t, mux, func(cfg *Config) { cfg.Modality = "mwl" })

	items, err := c.FindWorklists(context.Background(), "20250401", "20250430")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "abc", items[0].ID)
	assert.Equal(t, "Doe^Jane", items[0].PatientName)
	assert.Equal(t, "20250430", items[0].ScheduledDate)
	assert.Equal(t, "US", items[0].Modality)
	assert.Equal(t, "Cardiac Echo", items[0].Description)

	assert.Equal(t, "def", items[1].ID)
	assert.Equal(t, "CT", items[1].Modality)
}

func TestFindWorklists_Error(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown modality", http.StatusNotFound)
	}))
	_, err := c.FindWorklists(context.Background(), "20250401", "20250430")
	assert.Error(t, err)
}
