package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ojscutt/sl-pitchfork/internal/core/services"
	"github.com/ojscutt/sl-pitchfork/internal/testutil"
)

type routerMocks struct {
	emRepo   *testutil.MockEmulatorRepo
	runRepo  *testutil.MockInferenceRunRepo
	store    *testutil.MockArtifactStore
	launcher *testutil.MockRunLauncher
	catalog  *testutil.MockCatalogClient
}

func setupRouter() (*routerMocks, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	m := &routerMocks{
		emRepo:   new(testutil.MockEmulatorRepo),
		runRepo:  new(testutil.MockInferenceRunRepo),
		store:    new(testutil.MockArtifactStore),
		launcher: new(testutil.MockRunLauncher),
		catalog:  new(testutil.MockCatalogClient),
	}

	emulatorSvc := services.NewEmulatorService(m.emRepo, m.runRepo, m.store)
	runSvc := services.NewInferenceRunService(m.runRepo, emulatorSvc, m.store, m.launcher, m.catalog)
	starSvc := services.NewStarService(m.catalog)

	h := New(emulatorSvc, runSvc, starSvc)
	r := gin.New()
	api := r.Group("/api/v1/pitchfork")
	h.RegisterRoutes(api)

	return m, r
}
