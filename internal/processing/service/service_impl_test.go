package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	clientdomain "github.com/kilomet/kilomet/internal/client/domain"
	clientrepo "github.com/kilomet/kilomet/internal/client/repository"
	"github.com/kilomet/kilomet/internal/clock"
	"github.com/kilomet/kilomet/internal/config"
	creditdomain "github.com/kilomet/kilomet/internal/credit/domain"
	legdomain "github.com/kilomet/kilomet/internal/leg/domain"
	legrepo "github.com/kilomet/kilomet/internal/leg/repository"
	processingdomain "github.com/kilomet/kilomet/internal/processing/domain"
	"github.com/kilomet/kilomet/internal/processing/lease"
	routecachedomain "github.com/kilomet/kilomet/internal/routecache/domain"
	uploaddomain "github.com/kilomet/kilomet/internal/upload/domain"
	uploadrepo "github.com/kilomet/kilomet/internal/upload/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// resolverStub resolves by exact pickup address and can be slowed down to
// exercise the watchdog.
type resolverStub struct {
	mu        sync.Mutex
	distances map[string]float64
	errs      map[string]error
	delay     time.Duration
	calls     int
}

func (r *resolverStub) Resolve(ctx context.Context, origin, destination string) (routecachedomain.Resolution, error) {
	r.mu.Lock()
	r.calls++
	delay := r.delay
	r.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return routecachedomain.Resolution{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err, ok := r.errs[origin]; ok {
		return routecachedomain.Resolution{FromCache: true}, err
	}
	if km, ok := r.distances[origin]; ok {
		return routecachedomain.Resolution{Km: km, FromCache: true}, nil
	}
	return routecachedomain.Resolution{FromCache: true}, routecachedomain.ErrNoRoute
}

type creditStub struct {
	mu       sync.Mutex
	consumed []int64
	err      error
}

func (c *creditStub) Consume(ctx context.Context, accountID string, amount int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.consumed = append(c.consumed, amount)
	return nil
}

func (c *creditStub) Balance(ctx context.Context, accountID string) (int64, error) {
	return 0, nil
}

func (c *creditStub) Consumed() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int64, len(c.consumed))
	copy(out, c.consumed)
	return out
}

type fixture struct {
	svc     processingdomain.Service
	db      *gorm.DB
	node    *snowflake.Node
	lease   *lease.MemoryLease
	credits *creditStub
	clock   *clock.FakeClock
}

func setupProcessing(t *testing.T, resolver routecachedomain.Resolver, cfg config.ProcessingConfig) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.AutoMigrate(
		&uploaddomain.Upload{},
		&uploaddomain.Row{},
		&clientdomain.Client{},
		&legdomain.Leg{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	memLease := lease.NewMemory()
	credits := &creditStub{}
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		Cfg:        config.Config{Processing: cfg},
		GenID:      node,
		Clock:      fakeClock,
		UploadRepo: uploadrepo.Provide(),
		RowRepo:    uploadrepo.ProvideRows(),
		ClientRepo: clientrepo.Provide(),
		LegRepo:    legrepo.Provide(),
		Resolver:   resolver,
		Credits:    credits,
		Lease:      memLease,
	})

	return &fixture{svc: svc, db: db, node: node, lease: memLease, credits: credits, clock: fakeClock}
}

func defaultProcessingConfig() config.ProcessingConfig {
	return config.ProcessingConfig{
		Watchdog:     5 * time.Second,
		CacheTimeout: time.Second,
		LegChunkSize: 2,
	}
}

func (f *fixture) seedUpload(t *testing.T, status uploaddomain.Status) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	upload := uploaddomain.Upload{
		ID:        f.node.Generate(),
		OwnerID:   f.node.Generate(),
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := f.db.Create(&upload).Error; err != nil {
		t.Fatalf("seed upload: %v", err)
	}
	return upload.ID
}

func (f *fixture) seedRow(t *testing.T, uploadID snowflake.ID, clientName, pickup, dropoff string, invalid bool) {
	t.Helper()
	now := time.Now().UTC()
	row := uploaddomain.Row{
		ID:             f.node.Generate(),
		UploadID:       uploadID,
		ClientName:     clientName,
		PickupAddress:  pickup,
		DropoffAddress: dropoff,
		RawDate:        "2026-03-01",
		Invalid:        invalid,
		CreatedAt:      now,
	}
	if err := f.db.Create(&row).Error; err != nil {
		t.Fatalf("seed row: %v", err)
	}
}

func (f *fixture) waitForStatus(t *testing.T, uploadID snowflake.ID, want uploaddomain.Status) uploaddomain.Upload {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var upload uploaddomain.Upload
		if err := f.db.Raw(`SELECT * FROM uploads WHERE id = ?`, uploadID).Scan(&upload).Error; err != nil {
			t.Fatalf("read upload: %v", err)
		}
		if upload.Status == want {
			return upload
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("upload %s never reached status %s", uploadID, want)
	return uploaddomain.Upload{}
}

func TestStartProcessesUpload(t *testing.T) {
	resolver := &resolverStub{
		distances: map[string]float64{
			"pickup a": 7.5,
			"pickup b": 3.2,
			"pickup c": 12.0,
		},
	}
	f := setupProcessing(t, resolver, defaultProcessingConfig())
	uploadID := f.seedUpload(t, uploaddomain.StatusReady)
	f.seedRow(t, uploadID, "Acme", "pickup a", "drop a", false)
	f.seedRow(t, uploadID, "Acme", "pickup b", "drop b", false)
	f.seedRow(t, uploadID, "", "pickup c", "drop c", false)

	result, err := f.svc.Start(context.Background(), uploadID.String(), f.node.Generate().String())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("expected accepted, got %+v", result)
	}

	upload := f.waitForStatus(t, uploadID, uploaddomain.StatusDistancesDone)
	if upload.TotalLegs != 3 {
		t.Fatalf("expected 3 legs, got %d", upload.TotalLegs)
	}
	if upload.TotalClients != 2 {
		t.Fatalf("expected 2 clients, got %d", upload.TotalClients)
	}

	var clients []clientdomain.Client
	if err := f.db.Raw(`SELECT * FROM clients WHERE upload_id = ? ORDER BY name`, uploadID).Scan(&clients).Error; err != nil {
		t.Fatalf("read clients: %v", err)
	}
	if len(clients) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(clients))
	}
	if clients[0].Name != "Acme" || clients[0].LegCount != 2 {
		t.Fatalf("unexpected client: %+v", clients[0])
	}
	if clients[1].Name != clientdomain.UnknownClientName || clients[1].LegCount != 1 {
		t.Fatalf("nameless rows must land in the sentinel bucket, got %+v", clients[1])
	}

	var legs []legdomain.Leg
	if err := f.db.Raw(`SELECT * FROM legs WHERE upload_id = ?`, uploadID).Scan(&legs).Error; err != nil {
		t.Fatalf("read legs: %v", err)
	}
	for _, leg := range legs {
		if leg.Status != legdomain.StatusDistanceOK {
			t.Fatalf("expected DISTANCE_OK, got %s", leg.Status)
		}
		if leg.DistanceKm == nil {
			t.Fatal("expected a resolved distance")
		}
		if leg.PriceHT != nil || leg.PriceTTC != nil {
			t.Fatal("prices must stay nil until pricing runs")
		}
		if !leg.CreatedAt.Equal(f.clock.Now()) {
			t.Fatalf("legs must carry the injected clock time, got %v", leg.CreatedAt)
		}
	}

	if consumed := f.credits.Consumed(); len(consumed) != 1 || consumed[0] != 3 {
		t.Fatalf("expected one credit consumption of 3, got %v", consumed)
	}
}

func TestStartIsIdempotentPerStatus(t *testing.T) {
	f := setupProcessing(t, &resolverStub{}, defaultProcessingConfig())

	running := f.seedUpload(t, uploaddomain.StatusProcessing)
	result, err := f.svc.Start(context.Background(), running.String(), f.node.Generate().String())
	if err != nil {
		t.Fatalf("start on processing: %v", err)
	}
	if !result.AlreadyRunning {
		t.Fatalf("expected AlreadyRunning, got %+v", result)
	}

	done := f.seedUpload(t, uploaddomain.StatusDistancesDone)
	result, err = f.svc.Start(context.Background(), done.String(), f.node.Generate().String())
	if err != nil {
		t.Fatalf("start on distances_done: %v", err)
	}
	if !result.AlreadyDone {
		t.Fatalf("expected AlreadyDone, got %+v", result)
	}

	if consumed := f.credits.Consumed(); len(consumed) != 0 {
		t.Fatalf("idempotent refusals must not consume credits, got %v", consumed)
	}
}

func TestStartRejectsInvalidRows(t *testing.T) {
	f := setupProcessing(t, &resolverStub{}, defaultProcessingConfig())
	uploadID := f.seedUpload(t, uploaddomain.StatusPendingValidation)
	f.seedRow(t, uploadID, "Acme", "pickup a", "drop a", true)
	f.seedRow(t, uploadID, "Acme", "pickup b", "drop b", false)

	result, err := f.svc.Start(context.Background(), uploadID.String(), f.node.Generate().String())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if result.InvalidRows != 1 {
		t.Fatalf("expected 1 invalid row, got %+v", result)
	}
}

func TestStartUnknownUpload(t *testing.T) {
	f := setupProcessing(t, &resolverStub{}, defaultProcessingConfig())

	_, err := f.svc.Start(context.Background(), f.node.Generate().String(), f.node.Generate().String())
	if !errors.Is(err, uploaddomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, err = f.svc.Start(context.Background(), "not-a-number", f.node.Generate().String())
	if !errors.Is(err, uploaddomain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestStartReleasesLeaseWhenCreditsFail(t *testing.T) {
	f := setupProcessing(t, &resolverStub{distances: map[string]float64{"pickup a": 1}}, defaultProcessingConfig())
	f.credits.err = creditdomain.ErrInsufficientCredits

	uploadID := f.seedUpload(t, uploaddomain.StatusReady)
	f.seedRow(t, uploadID, "Acme", "pickup a", "drop a", false)
	accountID := f.node.Generate().String()

	_, err := f.svc.Start(context.Background(), uploadID.String(), accountID)
	if !errors.Is(err, creditdomain.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}

	// The lease must be free again so a topped-up account can retry.
	f.credits.err = nil
	result, err := f.svc.Start(context.Background(), uploadID.String(), accountID)
	if err != nil {
		t.Fatalf("retry after top-up: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("expected retry to be accepted, got %+v", result)
	}
	f.waitForStatus(t, uploadID, uploaddomain.StatusDistancesDone)
}

func TestRunClassifiesLegOutcomes(t *testing.T) {
	resolver := &resolverStub{
		distances: map[string]float64{"pickup ok": 4.2},
		errs: map[string]error{
			"pickup missing": routecachedomain.ErrNoRoute,
			"pickup broken":  routecachedomain.ErrResolutionFailed,
		},
	}
	f := setupProcessing(t, resolver, defaultProcessingConfig())
	uploadID := f.seedUpload(t, uploaddomain.StatusReady)
	f.seedRow(t, uploadID, "Acme", "pickup ok", "drop", false)
	f.seedRow(t, uploadID, "Acme", "pickup missing", "drop", false)
	f.seedRow(t, uploadID, "Acme", "pickup broken", "drop", false)
	f.seedRow(t, uploadID, "Acme", "", "drop", false)

	if _, err := f.svc.Start(context.Background(), uploadID.String(), f.node.Generate().String()); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.waitForStatus(t, uploadID, uploaddomain.StatusDistancesDone)

	statuses := map[string]legdomain.LegStatus{}
	var legs []legdomain.Leg
	if err := f.db.Raw(`SELECT * FROM legs WHERE upload_id = ?`, uploadID).Scan(&legs).Error; err != nil {
		t.Fatalf("read legs: %v", err)
	}
	for _, leg := range legs {
		statuses[leg.PickupAddress] = leg.Status
	}

	if statuses["pickup ok"] != legdomain.StatusDistanceOK {
		t.Fatalf("expected DISTANCE_OK, got %s", statuses["pickup ok"])
	}
	if statuses["pickup missing"] != legdomain.StatusAddressNotFound {
		t.Fatalf("expected ADDRESS_NOT_FOUND for no route, got %s", statuses["pickup missing"])
	}
	if statuses["pickup broken"] != legdomain.StatusCalculationError {
		t.Fatalf("expected CALCULATION_ERROR, got %s", statuses["pickup broken"])
	}
	if statuses[""] != legdomain.StatusAddressNotFound {
		t.Fatalf("expected ADDRESS_NOT_FOUND for empty address, got %s", statuses[""])
	}
}

func TestRunAbortsOnMissingCredential(t *testing.T) {
	resolver := &resolverStub{
		errs: map[string]error{"pickup a": routecachedomain.ErrMissingCredential},
	}
	f := setupProcessing(t, resolver, defaultProcessingConfig())
	uploadID := f.seedUpload(t, uploaddomain.StatusReady)
	f.seedRow(t, uploadID, "Acme", "pickup a", "drop a", false)

	if _, err := f.svc.Start(context.Background(), uploadID.String(), f.node.Generate().String()); err != nil {
		t.Fatalf("start: %v", err)
	}

	// A configuration error fails the whole run instead of marking every leg.
	f.waitForStatus(t, uploadID, uploaddomain.StatusFailed)

	var count int64
	if err := f.db.Raw(`SELECT COUNT(*) FROM legs WHERE upload_id = ?`, uploadID).Scan(&count).Error; err != nil {
		t.Fatalf("count legs: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no legs written, got %d", count)
	}
}

func TestWatchdogForcesFailed(t *testing.T) {
	resolver := &resolverStub{
		distances: map[string]float64{"pickup a": 1, "pickup b": 2},
		delay:     150 * time.Millisecond,
	}
	cfg := defaultProcessingConfig()
	cfg.Watchdog = 50 * time.Millisecond

	f := setupProcessing(t, resolver, cfg)
	uploadID := f.seedUpload(t, uploaddomain.StatusReady)
	f.seedRow(t, uploadID, "Acme", "pickup a", "drop a", false)
	f.seedRow(t, uploadID, "Acme", "pickup b", "drop b", false)

	if _, err := f.svc.Start(context.Background(), uploadID.String(), f.node.Generate().String()); err != nil {
		t.Fatalf("start: %v", err)
	}

	f.waitForStatus(t, uploadID, uploaddomain.StatusFailed)

	// The watchdog released the lease, so the upload can be reprocessed.
	resolver.mu.Lock()
	resolver.delay = 0
	resolver.mu.Unlock()

	deadline := time.Now().Add(5 * time.Second)
	for {
		result, err := f.svc.Start(context.Background(), uploadID.String(), f.node.Generate().String())
		if err != nil {
			t.Fatalf("restart: %v", err)
		}
		if result.Accepted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("restart never accepted, last result %+v", result)
		}
		time.Sleep(20 * time.Millisecond)
	}
	f.waitForStatus(t, uploadID, uploaddomain.StatusDistancesDone)
}

func TestReprocessingReplacesLegs(t *testing.T) {
	resolver := &resolverStub{distances: map[string]float64{"pickup a": 5}}
	f := setupProcessing(t, resolver, defaultProcessingConfig())
	uploadID := f.seedUpload(t, uploaddomain.StatusReady)
	f.seedRow(t, uploadID, "Acme", "pickup a", "drop a", false)

	if _, err := f.svc.Start(context.Background(), uploadID.String(), f.node.Generate().String()); err != nil {
		t.Fatalf("first start: %v", err)
	}
	f.waitForStatus(t, uploadID, uploaddomain.StatusDistancesDone)

	// Force a rerun through the failed state.
	if err := f.db.Exec(`UPDATE uploads SET status = ? WHERE id = ?`, uploaddomain.StatusFailed, uploadID).Error; err != nil {
		t.Fatalf("reset status: %v", err)
	}
	if _, err := f.svc.Start(context.Background(), uploadID.String(), f.node.Generate().String()); err != nil {
		t.Fatalf("second start: %v", err)
	}
	f.waitForStatus(t, uploadID, uploaddomain.StatusDistancesDone)

	var legCount, clientCount int64
	if err := f.db.Raw(`SELECT COUNT(*) FROM legs WHERE upload_id = ?`, uploadID).Scan(&legCount).Error; err != nil {
		t.Fatalf("count legs: %v", err)
	}
	if err := f.db.Raw(`SELECT COUNT(*) FROM clients WHERE upload_id = ?`, uploadID).Scan(&clientCount).Error; err != nil {
		t.Fatalf("count clients: %v", err)
	}
	if legCount != 1 {
		t.Fatalf("reprocessing must replace legs, got %d", legCount)
	}
	if clientCount != 1 {
		t.Fatalf("reprocessing must not duplicate clients, got %d", clientCount)
	}
}
