package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stokku/stokku/internal/catalog"
	"github.com/stokku/stokku/internal/movement"
)

type fakeCatalog struct {
	mu             sync.Mutex
	products       map[string]catalog.Product // keyed by sku
	lookupCalls    int
	decrementCalls int
	decrementErr   error
}

func newFakeCatalog(products ...catalog.Product) *fakeCatalog {
	f := &fakeCatalog{products: make(map[string]catalog.Product)}
	for _, p := range products {
		if p.SKU != nil {
			f.products[*p.SKU] = p
		}
	}
	return f
}

func (f *fakeCatalog) GetBySKU(_ context.Context, sku string) (catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookupCalls++
	p, ok := f.products[sku]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

// DecrementQuantity mirrors the store-level conditional write: a single
// clamped mutation under the row lock, no read-then-write window.
func (f *fakeCatalog) DecrementQuantity(_ context.Context, id string, by int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decrementCalls++
	if f.decrementErr != nil {
		return 0, f.decrementErr
	}
	for sku, p := range f.products {
		if p.ID == id {
			p.Quantity -= by
			if p.Quantity < 0 {
				p.Quantity = 0
			}
			f.products[sku] = p
			return p.Quantity, nil
		}
	}
	return 0, catalog.ErrProductNotFound
}

func (f *fakeCatalog) quantity(t *testing.T, sku string) int {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[sku]
	require.True(t, ok)
	return p.Quantity
}

type fakeMovements struct {
	mu        sync.Mutex
	records   []movement.Record
	appendErr error
	nextID    int
}

func (f *fakeMovements) Append(_ context.Context, rec *movement.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.nextID++
	rec.ID = fmt.Sprintf("mv-%d", f.nextID)
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeMovements) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fakeFeed struct {
	mu        sync.Mutex
	published []movement.Record
}

func (f *fakeFeed) Publish(_ context.Context, rec movement.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, rec)
	return nil
}

type fakeJobs struct {
	mu      sync.Mutex
	repairs []string
	alerts  []string
}

func (f *fakeJobs) EnqueueStockRepair(_ context.Context, productID, _ string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repairs = append(f.repairs, productID)
	return nil
}

func (f *fakeJobs) EnqueueLowStockAlert(_ context.Context, productID, _ string, _, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, productID)
	return nil
}

func strptr(s string) *string { return &s }
func intptr(i int) *int       { return &i }

func testProduct(sku string, quantity int) catalog.Product {
	return catalog.Product{
		ID:       "7f9c30c2-8f6e-4a49-9d28-9a3c1f0a0001",
		SKU:      strptr(sku),
		Name:     "Kopi Bubuk 250g",
		Category: strptr("minuman"),
		Quantity: quantity,
	}
}

func newTestProcessor(cat *fakeCatalog, mov *fakeMovements, feed *fakeFeed, jobs *fakeJobs) *Processor {
	logger := slog.New(slog.DiscardHandler)
	var feedPort FeedPort
	if feed != nil {
		feedPort = feed
	}
	var jobsPort JobEnqueuer
	if jobs != nil {
		jobsPort = jobs
	}
	return NewProcessor(logger, cat, mov, feedPort, jobsPort)
}

func TestProcessDecrementsAndRecords(t *testing.T) {
	cat := newFakeCatalog(testProduct("ABC123", 5))
	mov := &fakeMovements{}
	feed := &fakeFeed{}
	p := newTestProcessor(cat, mov, feed, &fakeJobs{})

	result, err := p.Process(context.Background(), Event{Barcode: "ABC123", DeviceID: "ESP32_01", Timestamp: "2026-08-31T10:00:00Z"})
	require.NoError(t, err)

	require.Equal(t, "Kopi Bubuk 250g", result.Product.Name)
	require.Equal(t, "ABC123", result.Product.SKU)
	require.Equal(t, 5, result.Product.OldQuantity)
	require.Equal(t, 4, result.Product.NewQuantity)
	require.NotNil(t, result.Product.Category)
	require.Equal(t, "minuman", *result.Product.Category)

	require.Equal(t, 4, cat.quantity(t, "ABC123"))
	require.Len(t, mov.records, 1)
	rec := mov.records[0]
	require.Equal(t, movement.TypeOut, rec.Type)
	require.Equal(t, 1, rec.Quantity)
	require.Equal(t, "ESP32_01", rec.DeviceID)
	require.Equal(t, "Scanned by device: ESP32_01", rec.Notes)
	require.Len(t, feed.published, 1)
	require.Equal(t, rec.ID, feed.published[0].ID)
}

func TestProcessClampsAtZero(t *testing.T) {
	cat := newFakeCatalog(testProduct("ABC123", 0))
	mov := &fakeMovements{}
	p := newTestProcessor(cat, mov, nil, nil)

	result, err := p.Process(context.Background(), Event{Barcode: "ABC123", DeviceID: "ESP32_01"})
	require.NoError(t, err)
	require.Equal(t, 0, result.Product.OldQuantity)
	require.Equal(t, 0, result.Product.NewQuantity)
	require.Equal(t, 1, mov.count(), "movement is appended even at zero stock")
	require.Equal(t, 0, cat.quantity(t, "ABC123"))
}

func TestProcessUnknownBarcodeMutatesNothing(t *testing.T) {
	cat := newFakeCatalog(testProduct("ABC123", 5))
	mov := &fakeMovements{}
	p := newTestProcessor(cat, mov, nil, nil)

	_, err := p.Process(context.Background(), Event{Barcode: "ZZZ999", DeviceID: "ESP32_01"})
	require.ErrorIs(t, err, ErrProductNotFound)
	require.Equal(t, 0, mov.count())
	require.Equal(t, 0, cat.decrementCalls)
	require.Equal(t, 5, cat.quantity(t, "ABC123"))
}

func TestProcessMissingBarcodeSkipsStores(t *testing.T) {
	cat := newFakeCatalog(testProduct("ABC123", 5))
	mov := &fakeMovements{}
	p := newTestProcessor(cat, mov, nil, nil)

	_, err := p.Process(context.Background(), Event{DeviceID: "ESP32_01"})
	require.ErrorIs(t, err, ErrInvalidEvent)
	require.Equal(t, 0, cat.lookupCalls)
	require.Equal(t, 0, cat.decrementCalls)
	require.Equal(t, 0, mov.count())
}

func TestProcessMovementWriteFailureAbortsBeforeStock(t *testing.T) {
	cat := newFakeCatalog(testProduct("ABC123", 5))
	mov := &fakeMovements{appendErr: errors.New("insert failed")}
	p := newTestProcessor(cat, mov, nil, nil)

	_, err := p.Process(context.Background(), Event{Barcode: "ABC123", DeviceID: "ESP32_01"})
	require.ErrorIs(t, err, ErrMovementWrite)
	require.Equal(t, 0, cat.decrementCalls)
	require.Equal(t, 5, cat.quantity(t, "ABC123"))
}

func TestProcessStockWriteFailureStillSucceeds(t *testing.T) {
	cat := newFakeCatalog(testProduct("ABC123", 5))
	cat.decrementErr = errors.New("write failed")
	mov := &fakeMovements{}
	jobs := &fakeJobs{}
	p := newTestProcessor(cat, mov, &fakeFeed{}, jobs)

	result, err := p.Process(context.Background(), Event{Barcode: "ABC123", DeviceID: "ESP32_01"})
	require.NoError(t, err, "audit record is authoritative, the device sees success")
	require.Equal(t, 5, result.Product.OldQuantity)
	require.Equal(t, 4, result.Product.NewQuantity)
	require.Equal(t, 1, mov.count())
	require.Equal(t, []string{"7f9c30c2-8f6e-4a49-9d28-9a3c1f0a0001"}, jobs.repairs)
}

func TestProcessReplayDecrementsAgain(t *testing.T) {
	// A replayed wire payload is a second scan: no dedup key exists, so
	// the stock drops twice and two records are appended.
	cat := newFakeCatalog(testProduct("ABC123", 5))
	mov := &fakeMovements{}
	p := newTestProcessor(cat, mov, nil, nil)

	event := Event{Barcode: "ABC123", DeviceID: "ESP32_01", Timestamp: "2026-08-31T10:00:00Z"}
	_, err := p.Process(context.Background(), event)
	require.NoError(t, err)
	_, err = p.Process(context.Background(), event)
	require.NoError(t, err)

	require.Equal(t, 3, cat.quantity(t, "ABC123"))
	require.Equal(t, 2, mov.count())
}

func TestProcessLowStockAlert(t *testing.T) {
	product := testProduct("ABC123", 3)
	product.MinQuantity = intptr(2)
	cat := newFakeCatalog(product)
	mov := &fakeMovements{}
	jobs := &fakeJobs{}
	p := newTestProcessor(cat, mov, nil, jobs)

	_, err := p.Process(context.Background(), Event{Barcode: "ABC123", DeviceID: "ESP32_01"})
	require.NoError(t, err)
	require.Equal(t, []string{product.ID}, jobs.alerts)
}

func TestConcurrentScansNeverGoNegative(t *testing.T) {
	const n = 8
	cat := newFakeCatalog(testProduct("ABC123", 1))
	mov := &fakeMovements{}
	p := newTestProcessor(cat, mov, nil, nil)

	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Process(context.Background(), Event{Barcode: "ABC123", DeviceID: "ESP32_01"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, n, mov.count(), "every scan leaves an audit record")
	require.Equal(t, 0, cat.quantity(t, "ABC123"), "clamped decrement never drives stock negative")
}
