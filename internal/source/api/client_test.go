package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spamanager/spa-manager/internal/dashboard"
	"github.com/spamanager/spa-manager/internal/reporting"
)

const salesPayload = `{"data": [
  {"id": 1, "date": "2024-05-20T00:00:00.000Z", "branch_id": 2, "seller": {"id": 9, "name": "Laura"},
   "product": {"id": "p1", "name": "Aceite"}, "client_name": " Ana ", "service_rendered": "Masaje",
   "quantity": "2", "unit_price": "15.50", "payment_method": "Efectivo"},
  {"id": "2", "occurred_on": "2024-05-21", "branch": {"id": "3"}, "seller_name": "Marta",
   "total": 80, "deleted_at": "2024-05-22T10:00:00Z"},
  {"id": 3, "created_at": "2024-05-22 09:15:00", "monto": "1,250.00", "isDeleted": 1},
  {"id": 4, "date": "not a date", "amount": null, "status": "Canceled", "deletedAt": null}
]}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{BaseURL: srv.URL + "/", Token: "secret", Timeout: time.Second})
	require.NoError(t, err)
	return client
}

func TestListSalesMapsHeterogeneousPayload(t *testing.T) {
	var seen *http.Request
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(salesPayload))
	})

	sales, err := client.ListSales(context.Background(), dashboard.SalesQuery{BranchID: "2", Visibility: reporting.AllRecords})
	require.NoError(t, err)
	require.Len(t, sales, 4)

	assert.Equal(t, "/sales", seen.URL.Path)
	assert.Equal(t, "2", seen.URL.Query().Get("branch_id"))
	assert.Equal(t, "true", seen.URL.Query().Get("include_cancelled"))
	assert.Equal(t, "Bearer secret", seen.Header.Get("Authorization"))
	assert.NotEmpty(t, seen.Header.Get("X-Request-Id"))

	first := sales[0]
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, "2024-05-20", first.OccurredOn)
	assert.Equal(t, "2", first.BranchID)
	assert.Equal(t, "Laura", first.SellerLabel())
	assert.Equal(t, "9", first.SellerID)
	assert.Equal(t, "Aceite", first.ProductName)
	assert.Equal(t, "Ana", first.ClientName)
	assert.Equal(t, "Masaje", first.ServiceLabel)
	assert.False(t, first.Amount.Valid)
	assert.True(t, decimal.RequireFromString("31").Equal(first.Total()))
	assert.False(t, first.Cancelled())

	second := sales[1]
	assert.Equal(t, "3", second.BranchID)
	assert.True(t, decimal.NewFromInt(80).Equal(second.Total()))
	assert.True(t, second.Cancelled())

	third := sales[2]
	assert.Equal(t, "2024-05-22", third.OccurredOn)
	assert.True(t, decimal.NewFromInt(1250).Equal(third.Total()))
	assert.True(t, third.Cancelled())
	assert.Equal(t, reporting.UnassignedSeller, third.SellerLabel())

	fourth := sales[3]
	assert.Equal(t, "", fourth.OccurredOn)
	assert.Nil(t, fourth.DeletedAt)
	assert.True(t, fourth.Cancelled())
}

func TestListSalesActiveOmitsFlags(t *testing.T) {
	var query string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_, _ = w.Write([]byte(`[]`))
	})

	sales, err := client.ListSales(context.Background(), dashboard.SalesQuery{BranchID: reporting.AllBranches})
	require.NoError(t, err)
	assert.Empty(t, sales)
	assert.Empty(t, query)
}

func TestListSalesOnlyCancelled(t *testing.T) {
	var only string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		only = r.URL.Query().Get("only_cancelled")
		_, _ = w.Write([]byte(`{"data": []}`))
	})
	_, err := client.ListSales(context.Background(), dashboard.SalesQuery{Visibility: reporting.CancelledOnly})
	require.NoError(t, err)
	assert.Equal(t, "true", only)
}

func TestListAppointmentsNormalizesDateAndTime(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/appointments", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"id": 1, "date": "2024-05-20", "time": "10:00 AM", "client_name": "Ana", "service_type": "Facial", "status": "Confirmed"},
			{"id": 2, "appointment_date": "2024-05-21T15:30:00Z", "client": {"name": "Bea"}, "service": "Masaje"},
			{"id": 3, "date": "2024-05-22", "start_time": "09:05:00", "branch_id": 4}
		]`))
	})

	appts, err := client.ListAppointments(context.Background())
	require.NoError(t, err)
	require.Len(t, appts, 3)

	assert.Equal(t, "10:00", appts[0].Time)
	assert.Equal(t, reporting.StatusConfirmed, appts[0].EffectiveStatus())
	assert.Equal(t, "2024-05-21", appts[1].Date)
	assert.Equal(t, "15:30", appts[1].Time)
	assert.Equal(t, "Bea", appts[1].ClientName)
	assert.Equal(t, "Masaje", appts[1].ServiceType)
	assert.Equal(t, reporting.StatusScheduled, appts[1].EffectiveStatus())
	assert.Equal(t, "09:05", appts[2].Time)
	assert.Equal(t, "4", appts[2].BranchID)
}

func TestListLookups(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/branches":
			_, _ = w.Write([]byte(`[{"id": 1, "name": "Centro", "code": "CEN"}]`))
		case "/products":
			_, _ = w.Write([]byte(`{"data": {"data": [{"id": 5, "name": "Aceite", "price": "12.5", "stock": 2, "min_stock": 3, "max_stock": null, "is_low_stock": "true"}], "total": 1}}`))
		case "/leads":
			_, _ = w.Write([]byte(`[{"id": 7, "name": "Eva", "status": "SOLD", "message": " Pregunta por masajes ", "created_at": "2024-05-01T10:00:00Z"}]`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	branches, err := client.ListBranches(ctx)
	require.NoError(t, err)
	assert.Equal(t, []reporting.BranchRef{{ID: "1", Name: "Centro", Code: "CEN"}}, branches)

	products, err := client.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.True(t, decimal.RequireFromString("12.5").Equal(products[0].SalesPrice))
	assert.True(t, products[0].IsLowStock())
	assert.Nil(t, products[0].MaxStock)

	leads, err := client.ListLeads(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, reporting.LeadSold, leads[0].Status)
	assert.Equal(t, 2024, leads[0].CreatedAt.Year())
	assert.Equal(t, "Pregunta por masajes", leads[0].Message)
}

func TestClientReportsStatusErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	})

	_, err := client.ListBranches(context.Background())
	require.Error(t, err)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	assert.Equal(t, "maintenance", statusErr.Body)
	assert.Error(t, client.Ping(context.Background()))
}

func TestClientRejectsUnexpectedPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"nope"`))
	})
	_, err := client.ListLeads(context.Background())
	assert.ErrorIs(t, err, errUnexpectedPayload)
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "not a url"})
	assert.Error(t, err)
	_, err = NewClient(Config{BaseURL: ""})
	assert.Error(t, err)
}
