package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ojscutt/sl-pitchfork/internal/core/domain"
	ports "github.com/ojscutt/sl-pitchfork/internal/core/ports/output"
	"github.com/ojscutt/sl-pitchfork/internal/testutil"
)

func createRunBody(emulatorID uuid.UUID) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"name":        "16cyga-fit",
		"emulator_id": emulatorID.String(),
		"observations": []map[string]interface{}{
			{"name": "teff", "value": 5825, "sigma": 50},
		},
		"priors": map[string]interface{}{
			"mass": map[string]interface{}{"kind": "uniform", "min": 0.9, "max": 1.1},
		},
	})
	return body
}

func TestCreateRun(t *testing.T) {
	m, r := setupRouter()

	em := testutil.ReadyEmulator()
	m.emRepo.On("GetByID", mock.Anything, em.ID).Return(em, nil)
	m.runRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.InferenceRun")).Return(nil)
	m.runRepo.On("GetByID", mock.Anything, mock.AnythingOfType("uuid.UUID")).
		Return(testutil.PendingRun(em.ID), nil)

	req, _ := http.NewRequest("POST", "/api/v1/pitchfork/runs", bytes.NewReader(createRunBody(em.ID)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "PENDING", resp["status"])
}

func TestCreateRun_MissingName(t *testing.T) {
	_, r := setupRouter()

	body, _ := json.Marshal(map[string]interface{}{"emulator_id": uuid.NewString()})
	req, _ := http.NewRequest("POST", "/api/v1/pitchfork/runs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRun_EmulatorNotFound(t *testing.T) {
	m, r := setupRouter()

	id := uuid.New()
	m.emRepo.On("GetByID", mock.Anything, id).Return(nil, domain.ErrEmulatorNotFound)

	req, _ := http.NewRequest("POST", "/api/v1/pitchfork/runs", bytes.NewReader(createRunBody(id)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateRun_UnknownObservable(t *testing.T) {
	m, r := setupRouter()

	em := testutil.ReadyEmulator()
	m.emRepo.On("GetByID", mock.Anything, em.ID).Return(em, nil)

	body, _ := json.Marshal(map[string]interface{}{
		"name":        "bad-obs",
		"emulator_id": em.ID.String(),
		"observations": []map[string]interface{}{
			{"name": "luminosity", "value": 1.5, "sigma": 0.1},
		},
	})
	req, _ := http.NewRequest("POST", "/api/v1/pitchfork/runs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	m.runRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGetRun(t *testing.T) {
	m, r := setupRouter()

	run := testutil.PendingRun(uuid.New())
	m.runRepo.On("GetByID", mock.Anything, run.ID).Return(run, nil)

	req, _ := http.NewRequest("GET", "/api/v1/pitchfork/runs/"+run.ID.String(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetRun_NotFound(t *testing.T) {
	m, r := setupRouter()

	id := uuid.New()
	m.runRepo.On("GetByID", mock.Anything, id).Return(nil, domain.ErrRunNotFound)

	req, _ := http.NewRequest("GET", "/api/v1/pitchfork/runs/"+id.String(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRuns(t *testing.T) {
	m, r := setupRouter()

	runs := []*domain.InferenceRun{testutil.PendingRun(uuid.New())}
	m.runRepo.On("List", mock.Anything, mock.AnythingOfType("ports.RunListFilter")).Return(runs, 1, nil)

	req, _ := http.NewRequest("GET", "/api/v1/pitchfork/runs?status=PENDING", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, float64(1), resp["total"])
}

func TestListRuns_InvalidEmulatorFilter(t *testing.T) {
	_, r := setupRouter()

	req, _ := http.NewRequest("GET", "/api/v1/pitchfork/runs?emulator_id=nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartRun(t *testing.T) {
	m, r := setupRouter()

	run := testutil.PendingRun(uuid.New())
	m.runRepo.On("GetByID", mock.Anything, run.ID).Return(run, nil)
	m.launcher.On("IsAvailable").Return(true)
	m.launcher.On("Launch", mock.Anything, run).Return("", nil)

	req, _ := http.NewRequest("POST", "/api/v1/pitchfork/runs/"+run.ID.String()+"/start", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestStartRun_NotPending(t *testing.T) {
	m, r := setupRouter()

	run := testutil.PendingRun(uuid.New())
	run.Status = domain.RunStatusRunning
	m.runRepo.On("GetByID", mock.Anything, run.ID).Return(run, nil)

	req, _ := http.NewRequest("POST", "/api/v1/pitchfork/runs/"+run.ID.String()+"/start", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStartRun_LauncherUnavailable(t *testing.T) {
	m, r := setupRouter()

	run := testutil.PendingRun(uuid.New())
	m.runRepo.On("GetByID", mock.Anything, run.ID).Return(run, nil)
	m.launcher.On("IsAvailable").Return(false)

	req, _ := http.NewRequest("POST", "/api/v1/pitchfork/runs/"+run.ID.String()+"/start", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCancelRun(t *testing.T) {
	m, r := setupRouter()

	run := testutil.PendingRun(uuid.New())
	m.runRepo.On("GetByID", mock.Anything, run.ID).Return(run, nil)
	m.runRepo.On("Update", mock.Anything, run).Return(nil)

	req, _ := http.NewRequest("POST", "/api/v1/pitchfork/runs/"+run.ID.String()+"/cancel", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "CANCELED", resp["status"])
}

func TestCancelRun_Finished(t *testing.T) {
	m, r := setupRouter()

	run := testutil.PendingRun(uuid.New())
	run.Status = domain.RunStatusCompleted
	m.runRepo.On("GetByID", mock.Anything, run.ID).Return(run, nil)

	req, _ := http.NewRequest("POST", "/api/v1/pitchfork/runs/"+run.ID.String()+"/cancel", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSample(t *testing.T) {
	m, r := setupRouter()

	em := testutil.ReadyEmulator()
	m.emRepo.On("GetByID", mock.Anything, em.ID).Return(em, nil)
	m.runRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.InferenceRun")).Return(nil)
	m.runRepo.On("GetByID", mock.Anything, mock.AnythingOfType("uuid.UUID")).
		Return(testutil.PendingRun(em.ID), nil)
	m.launcher.On("IsAvailable").Return(true)
	m.launcher.On("Launch", mock.Anything, mock.AnythingOfType("*domain.InferenceRun")).Return("", nil)

	req, _ := http.NewRequest("POST", "/api/v1/pitchfork/sample", bytes.NewReader(createRunBody(em.ID)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestSample_DispatchFailure(t *testing.T) {
	m, r := setupRouter()

	em := testutil.ReadyEmulator()
	m.emRepo.On("GetByID", mock.Anything, em.ID).Return(em, nil)
	m.runRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.InferenceRun")).Return(nil)
	m.runRepo.On("GetByID", mock.Anything, mock.AnythingOfType("uuid.UUID")).
		Return(testutil.PendingRun(em.ID), nil)
	m.launcher.On("IsAvailable").Return(false)

	req, _ := http.NewRequest("POST", "/api/v1/pitchfork/sample", bytes.NewReader(createRunBody(em.ID)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// run is created even though dispatch failed
	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Contains(t, resp, "error")
	assert.Contains(t, resp, "run")
}

func TestDeleteRun(t *testing.T) {
	m, r := setupRouter()

	run := testutil.PendingRun(uuid.New())
	run.Status = domain.RunStatusCompleted
	m.runRepo.On("GetByID", mock.Anything, run.ID).Return(run, nil)
	m.runRepo.On("GetResult", mock.Anything, run.ID).Return(nil, domain.ErrResultNotFound)
	m.runRepo.On("Delete", mock.Anything, run.ID).Return(nil)

	req, _ := http.NewRequest("DELETE", "/api/v1/pitchfork/runs/"+run.ID.String(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteRun_Active(t *testing.T) {
	m, r := setupRouter()

	run := testutil.PendingRun(uuid.New())
	run.Status = domain.RunStatusRunning
	m.runRepo.On("GetByID", mock.Anything, run.ID).Return(run, nil)

	req, _ := http.NewRequest("DELETE", "/api/v1/pitchfork/runs/"+run.ID.String(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	m.runRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestGetPosterior(t *testing.T) {
	m, r := setupRouter()

	run := testutil.PendingRun(uuid.New())
	run.Status = domain.RunStatusCompleted
	result := &domain.RunResult{
		RunID:       run.ID,
		LogZ:        -42.5,
		NPosterior:  3,
		SamplesPath: "runs/" + run.ID.String() + ".csv",
		Posterior: []domain.ParameterSummary{
			{Name: "mass", Mean: 1.02, Std: 0.05},
		},
	}
	page := &ports.SamplesPage{
		Header: []string{"mass", "age"},
		Rows:   [][]float64{{1.0, 4.5}, {1.1, 4.2}},
		Total:  3,
	}

	m.runRepo.On("GetByID", mock.Anything, run.ID).Return(run, nil)
	m.runRepo.On("GetResult", mock.Anything, run.ID).Return(result, nil)
	m.store.On("ReadSamples", mock.Anything, result.SamplesPath, 0, 2).Return(page, nil)

	req, _ := http.NewRequest("GET", "/api/v1/pitchfork/runs/"+run.ID.String()+"/posterior?limit=2", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Parameters []string    `json:"parameters"`
		Samples    [][]float64 `json:"samples"`
		Total      int         `json:"total"`
		NextOffset int         `json:"next_offset"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, []string{"mass", "age"}, resp.Parameters)
	assert.Len(t, resp.Samples, 2)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.NextOffset)
}

func TestGetPosterior_NotCompleted(t *testing.T) {
	m, r := setupRouter()

	run := testutil.PendingRun(uuid.New())
	m.runRepo.On("GetByID", mock.Anything, run.ID).Return(run, nil)

	req, _ := http.NewRequest("GET", "/api/v1/pitchfork/runs/"+run.ID.String()+"/posterior", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}
