package api

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"device-allocation-backend/internal/model"
)

func TestCreateMachine(t *testing.T) {
	ts := newTestServer(t)
	ts.machine(t, "SER-0001")

	testCases := []struct {
		name  string
		body  gin.H
		code  int
		field string
	}{
		{name: "Duplicate serial", body: gin.H{"serialNumber": "ser-0001", "type": "POS"}, code: http.StatusBadRequest, field: "serialNumber"},
		{name: "Missing serial", body: gin.H{"type": "POS"}, code: http.StatusBadRequest, field: "serialNumber"},
		{name: "Bad type", body: gin.H{"serialNumber": "SER-0002", "type": "PRINTER"}, code: http.StatusBadRequest, field: "type"},
		{name: "Bad serial", body: gin.H{"serialNumber": "??", "type": "POS"}, code: http.StatusBadRequest, field: "serialNumber"},
		{name: "Wrong JSON type", body: gin.H{"serialNumber": 42, "type": "POS"}, code: http.StatusBadRequest, field: "serialNumber"},
		{name: "Soundbox", body: gin.H{"serialNumber": "SBX-0001", "type": "SOUNDBOX", "partnerType": "B2B"}, code: http.StatusCreated},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/machines", tc.body)
			require.Equal(t, tc.code, w.Code, w.Body.String())
			if tc.field != "" {
				assert.Contains(t, decode[errorResponse](t, w).Fields, tc.field)
			}
		})
	}
}

func TestListMachines_Filters(t *testing.T) {
	ts := newTestServer(t)
	ts.machine(t, "PAX-0001")
	ts.machine(t, "PAX-0002")
	w := ts.do(t, http.MethodPost, "/api/machines", gin.H{"serialNumber": "SBX-0001", "type": "SOUNDBOX", "manufacturer": "Ingenico"})
	require.Equal(t, http.StatusCreated, w.Code)

	type listing struct {
		Total int `json:"total"`
		Stats struct {
			Total    int `json:"total"`
			POS      int `json:"pos"`
			Soundbox int `json:"soundbox"`
		} `json:"stats"`
	}

	all := decode[listing](t, ts.do(t, http.MethodGet, "/api/machines", nil))
	assert.Equal(t, 3, all.Total)
	assert.Equal(t, 2, all.Stats.POS)
	assert.Equal(t, 1, all.Stats.Soundbox)

	soundbox := decode[listing](t, ts.do(t, http.MethodGet, "/api/machines?type=SOUNDBOX", nil))
	assert.Equal(t, 1, soundbox.Total)

	search := decode[listing](t, ts.do(t, http.MethodGet, "/api/machines?search=pax-000", nil))
	assert.Equal(t, 2, search.Total)

	maker := decode[listing](t, ts.do(t, http.MethodGet, "/api/machines?manufacturer=ingenico", nil))
	assert.Equal(t, 1, maker.Total)

	w = ts.do(t, http.MethodGet, "/api/machines?status=LOST", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateMachine(t *testing.T) {
	ts := newTestServer(t)
	m := ts.machine(t, "SER-0200")
	path := "/api/machines/" + m.ID.String()

	w := ts.do(t, http.MethodPut, path, gin.H{"status": "MAINTENANCE", "notes": "screen cracked"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[model.Machine](t, w)
	assert.Equal(t, model.MachineMaintenance, got.Status)
	assert.Equal(t, "screen cracked", got.Notes)
	assert.Equal(t, "A920", got.Model, "absent fields are untouched")

	w = ts.do(t, http.MethodPut, path, gin.H{"status": "ASSIGNED"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPut, path, gin.H{"status": "AVAILABLE"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []uuid.UUID{m.ID}, ts.notifier.dispatched(), "leaving maintenance puts the machine back in stock")

	w = ts.do(t, http.MethodPut, path, gin.H{"status": "AVAILABLE"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, ts.notifier.dispatched(), 1, "an already available machine is not announced again")

	w = ts.do(t, http.MethodPut, "/api/machines/"+uuid.NewString(), gin.H{"notes": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMachineHistoryAndDelete(t *testing.T) {
	ts := newTestServer(t)
	m := ts.machine(t, "SER-0300")

	history := decode[assignmentsResponse](t, ts.do(t, http.MethodGet, "/api/machines/"+m.ID.String()+"/assignments", nil))
	assert.Zero(t, history.Total)

	w := ts.do(t, http.MethodDelete, "/api/machines/"+m.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/api/machines/"+m.ID.String()+"/assignments", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
