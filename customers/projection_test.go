package customers

import (
	"context"
	"testing"
	"time"

	"auragold-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jan = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	feb = time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
)

func TestBuildMergesByContact(t *testing.T) {
	manual := []models.Customer{{ID: 4, Name: "Meera", Contact: "9000000001", CreatedAt: feb}}
	orders := []models.Order{
		{ID: "o3", CustomerName: "Meera K", CustomerContact: "9000000001", TotalAmount: 1000.5, CreatedAt: feb},
		{ID: "o2", CustomerName: "Ravi", CustomerContact: "9000000002", TotalAmount: 500, CreatedAt: feb},
		{ID: "o1", CustomerName: "Meera", CustomerContact: "9000000001", TotalAmount: 2000, CreatedAt: jan},
		{ID: "o1", CustomerName: "Meera", CustomerContact: "9000000001", TotalAmount: 2000, CreatedAt: jan},
	}

	out := Build(manual, orders)
	require.Len(t, out, 2)

	meera := out[0]
	assert.Equal(t, "MAN-4", meera.ID)
	assert.Equal(t, "Meera", meera.Name)
	assert.Equal(t, []string{"o3", "o1"}, meera.OrderIDs)
	assert.Equal(t, 3000.5, meera.TotalSpent)
	assert.Equal(t, jan, meera.JoinDate)

	ravi := out[1]
	assert.Equal(t, "CUST-9000000002", ravi.ID)
	assert.Equal(t, []string{"o2"}, ravi.OrderIDs)
	assert.Equal(t, 500.0, ravi.TotalSpent)
}

func TestBuildManualWithoutOrders(t *testing.T) {
	out := Build([]models.Customer{{ID: 1, Name: "Walk-in", Contact: "9111111111", CreatedAt: jan}}, nil)
	require.Len(t, out, 1)
	assert.Empty(t, out[0].OrderIDs)
	assert.Equal(t, 0.0, out[0].TotalSpent)
}

type fakeSource struct {
	orders []models.Order
	manual []models.Customer
	reads  int
}

func (f *fakeSource) ListOrders(ctx context.Context) ([]models.Order, error) {
	f.reads++
	return f.orders, nil
}

func (f *fakeSource) ListManualCustomers(ctx context.Context) ([]models.Customer, error) {
	return f.manual, nil
}

func TestProjectionCachesUntilInvalidated(t *testing.T) {
	src := &fakeSource{orders: []models.Order{{ID: "o1", CustomerContact: "1", TotalAmount: 10}}}
	p := NewProjection(src)
	ctx := context.Background()

	first, err := p.All(ctx)
	require.NoError(t, err)
	_, err = p.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, src.reads)
	assert.Len(t, first, 1)

	src.orders = append(src.orders, models.Order{ID: "o2", CustomerContact: "2", TotalAmount: 20})
	p.Invalidate()

	c, ok, err := p.ByContact(ctx, "2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 20.0, c.TotalSpent)
	assert.Equal(t, 2, src.reads)

	_, ok, err = p.ByContact(ctx, "3")
	require.NoError(t, err)
	assert.False(t, ok)
}
