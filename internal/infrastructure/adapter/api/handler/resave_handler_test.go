package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regsuite/registry-core/internal/domain/entity"
	"github.com/regsuite/registry-core/internal/domain/usecase/resave"
	"github.com/regsuite/registry-core/internal/infrastructure/adapter/api/dto"
	"github.com/regsuite/registry-core/internal/infrastructure/adapter/logger"
	"github.com/regsuite/registry-core/internal/testutil"
)

func newResaveRouter(t *testing.T, cfg resave.Config) (*gin.Engine, *testutil.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := testutil.NewFakeClock(testTime)
	store := testutil.NewMemoryStore(clock)
	h := NewResaveHandler(store, clock, logger.NewNoopLogger(), nil, cfg)

	router := gin.New()
	router.POST("/resave", h.Run)
	return router, store
}

// seedSweepPopulation inserts three plain domains plus one whose pending
// transfer matured before testTime. A fast sweep visits only the matured one
func seedSweepPopulation(store *testutil.MemoryStore) {
	for i := 0; i < 3; i++ {
		store.SeedResource(&entity.Resource{
			RepoID:             fmt.Sprintf("%03d-PLAIN", i),
			Type:               entity.ResourceTypeDomain,
			DomainName:         fmt.Sprintf("plain%03d.tld", i),
			SponsorRegistrarID: "TheRegistrar",
			UpdateTime:         testTime.Add(-24 * time.Hour),
		})
	}
	store.SeedResource(&entity.Resource{
		RepoID:             "999-TRANSFER",
		Type:               entity.ResourceTypeDomain,
		DomainName:         "moving.tld",
		SponsorRegistrarID: "LosingRegistrar",
		Statuses:           []entity.StatusValue{entity.StatusPendingTransfer},
		TransferData: &entity.TransferData{
			Status:              entity.TransferStatusPending,
			GainingRegistrarID:  "GainingRegistrar",
			RequestTime:         testTime.Add(-10 * 24 * time.Hour),
			PendingTransferTime: testTime.Add(-time.Hour),
		},
		UpdateTime: testTime.Add(-10 * 24 * time.Hour),
	})
}

func runSweep(t *testing.T, router *gin.Engine, body string) dto.ResaveResponse {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/resave", strings.NewReader(body))
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.ResaveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestResaveHandler_FastMode(t *testing.T) {
	t.Run("bodyless request keeps the configured fast default", func(t *testing.T) {
		router, store := newResaveRouter(t, resave.Config{Fast: true})
		seedSweepPopulation(store)

		resp := runSweep(t, router, "")

		assert.Equal(t, int64(1), resp.Processed, "fast mode visits only the transfer candidate")
		assert.Equal(t, int64(1), resp.Resaved)
	})

	t.Run("explicit fast=false overrides the configured default", func(t *testing.T) {
		router, store := newResaveRouter(t, resave.Config{Fast: true})
		seedSweepPopulation(store)

		resp := runSweep(t, router, `{"fast": false}`)

		assert.Equal(t, int64(4), resp.Processed, "the full population is visited")
		assert.Equal(t, int64(1), resp.Resaved)
	})

	t.Run("explicit fast=true narrows a full default", func(t *testing.T) {
		router, store := newResaveRouter(t, resave.Config{})
		seedSweepPopulation(store)

		resp := runSweep(t, router, `{"fast": true}`)

		assert.Equal(t, int64(1), resp.Processed)
	})
}
