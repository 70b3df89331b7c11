package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_GetCoinInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/mint1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("sync") != "false" {
			t.Errorf("missing sync=false query parameter")
		}
		w.Write([]byte(`{
			"mint": "mint1",
			"name": "MoonCat",
			"symbol": "MCAT",
			"market_cap": 42.5,
			"usd_market_cap": 8500,
			"total_supply": 1000000000000000
		}`))
	}))
	defer srv.Close()

	info, err := NewClient(srv.URL).GetCoinInfo(context.Background(), "mint1")
	if err != nil {
		t.Fatalf("GetCoinInfo failed: %v", err)
	}
	if info.Name != "MoonCat" || info.MarketCapSol != 42.5 {
		t.Errorf("unexpected coin info: %+v", info)
	}
	if info.TotalSupply != 1000000000000000 {
		t.Errorf("TotalSupply = %f", info.TotalSupply)
	}
}

func TestClient_GetCoinInfo_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	info, err := NewClient(srv.URL).GetCoinInfo(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("expected nil error for unknown coin, got %v", err)
	}
	if info != nil {
		t.Errorf("expected nil info for unknown coin, got %+v", info)
	}
}

func TestClient_GetCoinInfo_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetCoinInfo(context.Background(), "mint1")
	if err == nil {
		t.Error("expected error for server failure")
	}
}

func TestClient_GetSolPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sol-price" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"solPrice": 187.3}`))
	}))
	defer srv.Close()

	price, err := NewClient(srv.URL).GetSolPrice(context.Background())
	if err != nil {
		t.Fatalf("GetSolPrice failed: %v", err)
	}
	if price != 187.3 {
		t.Errorf("price = %f, want 187.3", price)
	}
}
