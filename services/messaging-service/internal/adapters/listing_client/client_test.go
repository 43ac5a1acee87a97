package listing_client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace/pkg/contextkeys"
	"marketplace/services/messaging-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetListingSummary(t *testing.T) {
	listingID, sellerID := uuid.New(), uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/internal/listings/"+listingID.String(), r.URL.Path)
		assert.Equal(t, "trace-42", r.Header.Get("X-Trace-ID"))
		_ = json.NewEncoder(w).Encode(domain.ListingSummary{
			ID: listingID, SellerID: sellerID, Title: "Велосипед", Status: "published", Price: 150, Currency: "BYN",
		})
	}))
	defer srv.Close()

	ctx := contextkeys.ContextWithTraceID(context.Background(), "trace-42")
	summary, err := NewClient(srv.URL+"/", time.Second).GetListingSummary(ctx, listingID)
	require.NoError(t, err)
	assert.Equal(t, sellerID, summary.SellerID)
	assert.Equal(t, "Велосипед", summary.Title)
	assert.Equal(t, domain.ListingStatusPublished, summary.Status)
}

func TestGetListingSummary_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"listing not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).GetListingSummary(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrListingNotFound)
}

func TestGetListingSummary_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).GetListingSummary(context.Background(), uuid.New())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrListingNotFound)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "boom")
}
