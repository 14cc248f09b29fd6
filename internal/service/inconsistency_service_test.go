package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/xGerart/odoo-sync-backend/internal/entity"
)

type inconsistencyFixture struct {
	*syncFixture
	svc *InconsistencyService
}

func newInconsistencyFixture(t *testing.T) *inconsistencyFixture {
	t.Helper()
	base := newSyncFixture(t)
	svc := NewInconsistencyService(base.invoices, base.remote, base.svc, zap.NewNop())
	return &inconsistencyFixture{syncFixture: base, svc: svc}
}

// syncedInvoiceWithDrift syncs a 2-item invoice and then drifts the remote
// quantity of the first barcode.
func (f *inconsistencyFixture) syncedInvoiceWithDrift(t *testing.T) *entity.Invoice {
	t.Helper()
	inv := f.seedInvoice(t, 2)
	if _, err := f.syncFixture.svc.Sync(context.Background(), inv.ID, SyncOptions{SyncedBy: "admin"}); err != nil {
		t.Fatalf("seed sync: %v", err)
	}
	f.remote.mu.Lock()
	f.remote.remoteQty[inv.Items[0].Barcode] = 2 // locally 5 was added
	f.remote.mu.Unlock()
	return inv
}

func TestDetectReportsQuantityDrift(t *testing.T) {
	f := newInconsistencyFixture(t)
	inv := f.syncedInvoiceWithDrift(t)

	discrepancies, err := f.svc.Detect(context.Background(), nil)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	if len(discrepancies) != 1 {
		t.Fatalf("discrepancies = %d, want 1", len(discrepancies))
	}
	d := discrepancies[0]
	if d.Barcode != inv.Items[0].Barcode {
		t.Errorf("barcode = %q, want %q", d.Barcode, inv.Items[0].Barcode)
	}
	if d.LocalQuantity != 5 || d.RemoteQuantity != 2 {
		t.Errorf("quantities = %.1f/%.1f, want 5/2", d.LocalQuantity, d.RemoteQuantity)
	}
	if d.RemoteMissing {
		t.Error("product exists remotely, RemoteMissing must be false")
	}
}

func TestDetectReportsMissingRemoteProduct(t *testing.T) {
	f := newInconsistencyFixture(t)
	inv := f.seedInvoice(t, 1)
	if _, err := f.syncFixture.svc.Sync(context.Background(), inv.ID, SyncOptions{SyncedBy: "admin"}); err != nil {
		t.Fatalf("seed sync: %v", err)
	}
	// The product was removed remotely after the sync.
	f.remote.mu.Lock()
	delete(f.remote.remoteQty, inv.Items[0].Barcode)
	f.remote.mu.Unlock()

	discrepancies, err := f.svc.Detect(context.Background(), []string{inv.ID})
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(discrepancies) != 1 || !discrepancies[0].RemoteMissing {
		t.Fatalf("want one remote-missing discrepancy, got %+v", discrepancies)
	}
}

func TestDetectIsIdempotentAndReadOnly(t *testing.T) {
	f := newInconsistencyFixture(t)
	inv := f.syncedInvoiceWithDrift(t)

	before, err := f.invoices.GetByID(context.Background(), inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	snapshotsBefore := len(f.history.records)
	submissionsBefore := f.remote.submissionCount()

	first, err := f.svc.Detect(context.Background(), nil)
	if err != nil {
		t.Fatalf("first Detect(): %v", err)
	}
	second, err := f.svc.Detect(context.Background(), nil)
	if err != nil {
		t.Fatalf("second Detect(): %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Detect not idempotent:\nfirst  = %+v\nsecond = %+v", first, second)
	}

	after, err := f.invoices.GetByID(context.Background(), inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Error("Detect mutated the invoice")
	}
	if len(f.history.records) != snapshotsBefore {
		t.Error("Detect created a snapshot")
	}
	if f.remote.submissionCount() != submissionsBefore {
		t.Error("Detect submitted items to the remote system")
	}
}

func TestDetectAbortsOnRemoteFailure(t *testing.T) {
	f := newInconsistencyFixture(t)
	inv := f.seedInvoice(t, 2)
	if _, err := f.syncFixture.svc.Sync(context.Background(), inv.ID, SyncOptions{SyncedBy: "admin"}); err != nil {
		t.Fatalf("seed sync: %v", err)
	}

	// An outage must not read as a wave of deleted products.
	outage := errors.New("dial tcp 10.0.0.5:8069: connect: connection refused")
	f.remote.mu.Lock()
	f.remote.queryErr = outage
	f.remote.mu.Unlock()

	discrepancies, err := f.svc.Detect(context.Background(), nil)
	if !errors.Is(err, outage) {
		t.Fatalf("Detect() err = %v, want the transport error", err)
	}
	if discrepancies != nil {
		t.Errorf("discrepancies = %+v, want none on aborted run", discrepancies)
	}

	// Once the remote recovers the report is clean again.
	f.remote.mu.Lock()
	f.remote.queryErr = nil
	f.remote.mu.Unlock()

	discrepancies, err = f.svc.Detect(context.Background(), nil)
	if err != nil {
		t.Fatalf("Detect() after recovery: %v", err)
	}
	if len(discrepancies) != 0 {
		t.Errorf("discrepancies after recovery = %+v, want none", discrepancies)
	}
}

func TestDetectReplaceModeUsesLatestSync(t *testing.T) {
	f := newInconsistencyFixture(t)
	ctx := context.Background()
	ok := true
	earlier := time.Now().Add(-2 * time.Hour)
	later := time.Now().Add(-time.Hour)

	makeInvoice := func(id string, qty float64, syncedAt time.Time) *entity.Invoice {
		inv := &entity.Invoice{
			ID:            id,
			InvoiceNumber: "001-002-" + id,
			SupplierName:  "DISTRIBUIDORA LANSEY",
			UploadedBy:    "admin",
			RawPayload:    "<factura/>",
			Status:        entity.StatusSynced,
			QuantityMode:  entity.QuantityModeReplace,
			SyncedAt:      &syncedAt,
			SyncedBy:      "admin",
			Items: []entity.InvoiceItem{{
				ID:          id + "-item",
				InvoiceID:   id,
				Barcode:     "7500000000001",
				Description: "PRODUCTO REPUESTO",
				Quantity:    qty,
				UnitCost:    10,
				SyncSuccess: &ok,
			}},
		}
		if err := f.invoices.Create(ctx, inv); err != nil {
			t.Fatalf("seed invoice %s: %v", id, err)
		}
		return inv
	}

	makeInvoice("inv-old", 5, earlier)
	makeInvoice("inv-new", 8, later)

	// The remote holds the newest replacement.
	f.remote.mu.Lock()
	f.remote.remoteQty["7500000000001"] = 8
	f.remote.mu.Unlock()

	discrepancies, err := f.svc.Detect(ctx, nil)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(discrepancies) != 0 {
		t.Errorf("discrepancies = %+v, want none (latest replace wins)", discrepancies)
	}

	// An actual drift against the newest replacement is still reported.
	f.remote.mu.Lock()
	f.remote.remoteQty["7500000000001"] = 5
	f.remote.mu.Unlock()

	discrepancies, err = f.svc.Detect(ctx, nil)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(discrepancies) != 1 || discrepancies[0].LocalQuantity != 8 {
		t.Errorf("discrepancies = %+v, want one with local quantity 8", discrepancies)
	}
}

func TestDetectSkipsUnsyncedItems(t *testing.T) {
	f := newInconsistencyFixture(t)
	inv := f.seedInvoice(t, 2)
	inv.Status = entity.StatusPartiallySynced
	ok := true
	inv.Items[0].SyncSuccess = &ok
	f.invoices.Create(context.Background(), inv)
	f.remote.mu.Lock()
	f.remote.remoteQty[inv.Items[0].Barcode] = 5 // matches local
	f.remote.mu.Unlock()

	discrepancies, err := f.svc.Detect(context.Background(), nil)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	// Item 1 matches; item 2 was never synced so it is not checked at all.
	if len(discrepancies) != 0 {
		t.Errorf("discrepancies = %+v, want none", discrepancies)
	}
}

func TestFixResubmitsThroughSync(t *testing.T) {
	f := newInconsistencyFixture(t)
	inv := f.seedInvoice(t, 2)
	failing := inv.Items[1].Barcode
	f.remote.failFor[failing] = errors.New("remote rejected")
	if _, err := f.syncFixture.svc.Sync(context.Background(), inv.ID, SyncOptions{SyncedBy: "admin"}); err != nil {
		t.Fatalf("seed sync: %v", err)
	}
	delete(f.remote.failFor, failing)

	outcome, err := f.svc.Fix(context.Background(), inv.ID, []string{inv.Items[1].ID}, "admin")
	if err != nil {
		t.Fatalf("Fix() error = %v", err)
	}
	if outcome.Total != 1 || outcome.Successful != 1 {
		t.Errorf("fix outcome = %d/%d, want 1/1", outcome.Total, outcome.Successful)
	}
	if outcome.Status != entity.StatusSynced {
		t.Errorf("status = %q, want %q", outcome.Status, entity.StatusSynced)
	}
}
