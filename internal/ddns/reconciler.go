// Package ddns keeps a single A record pointed at the current public address.
package ddns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/cloudflare"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/publicip"
)

const (
	// RecordType is the only record type managed.
	RecordType = "A"
	// AutomaticTTL asks the provider to choose the TTL.
	AutomaticTTL = 1
	// DefaultProxied is used when creating the record.
	DefaultProxied = true
)

// Steps of a tick, reported on failure.
const (
	StepResolveIP    = "resolve-ip"
	StepFindZone     = "find-zone"
	StepFindRecord   = "find-record"
	StepCreateRecord = "create-record"
	StepUpdateRecord = "update-record"
)

// ErrZoneNotFound is returned when no zone matches the configured name.
var ErrZoneNotFound = errors.New("zone not found")

// ZoneAPI is the subset of the DNS provider API used by the reconciler.
type ZoneAPI interface {
	ListZones(ctx context.Context) ([]cloudflare.Zone, error)
	GetZone(ctx context.Context, zoneID string) (cloudflare.Zone, error)
	ListDNSRecords(ctx context.Context, zoneID string) ([]cloudflare.DNSRecord, error)
	CreateDNSRecord(ctx context.Context, zoneID string, params cloudflare.RecordParams) (cloudflare.DNSRecord, error)
	UpdateDNSRecord(ctx context.Context, zoneID, recordID string, params cloudflare.RecordParams) (cloudflare.DNSRecord, error)
}

// Outcome is the result of one tick.
type Outcome int

const (
	Failed Outcome = iota
	Created
	Updated
	Unchanged
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Unchanged:
		return "unchanged"
	default:
		return "failed"
	}
}

// TickError reports the step at which a tick failed.
type TickError struct {
	Step string
	Err  error
}

func (e *TickError) Error() string { return e.Step + ": " + e.Err.Error() }

func (e *TickError) Unwrap() error { return e.Err }

// ObserveFunc receives the result of every tick.
type ObserveFunc func(outcome string, failed bool, duration time.Duration)

// Reconciler compares the public address with the configured record and
// creates or updates the record when needed. It keeps no state between ticks.
type Reconciler struct {
	Log        logr.Logger
	Resolver   publicip.Resolver
	API        ZoneAPI
	ZoneName   string
	RecordName string
	// Observe is optional.
	Observe ObserveFunc
}

// Reconcile runs one tick and reports what it did.
func (r *Reconciler) Reconcile(ctx context.Context) (Outcome, error) {
	ip, err := r.Resolver.Resolve(ctx)
	if err != nil {
		return Failed, &TickError{Step: StepResolveIP, Err: err}
	}
	if !ip.IsValid() || !ip.Is4() {
		return Failed, &TickError{Step: StepResolveIP, Err: fmt.Errorf("bad ip address %q", ip)}
	}
	content := ip.String()
	r.Log.Info("public IP", "ip", content)

	zones, err := r.API.ListZones(ctx)
	if err != nil {
		return Failed, &TickError{Step: StepFindZone, Err: fmt.Errorf("listing zones: %w", err)}
	}
	zone, ok := findZone(zones, r.ZoneName)
	if !ok {
		return Failed, &TickError{Step: StepFindZone, Err: fmt.Errorf("%w: %s", ErrZoneNotFound, r.ZoneName)}
	}

	details, err := r.API.GetZone(ctx, zone.ID)
	if err != nil {
		return Failed, &TickError{Step: StepFindRecord, Err: fmt.Errorf("getting zone %s: %w", zone.ID, err)}
	}
	r.Log.Info("zone info", "id", details.ID, "name", details.Name)

	records, err := r.API.ListDNSRecords(ctx, details.ID)
	if err != nil {
		return Failed, &TickError{Step: StepFindRecord, Err: fmt.Errorf("listing DNS records in zone %s: %w", details.ID, err)}
	}
	record, ok := findRecord(records, r.RecordName)

	if !ok {
		r.Log.Info("DNS record does not exist, creating it", "record", r.RecordName, "zone", details.Name)
		created, err := r.API.CreateDNSRecord(ctx, details.ID, cloudflare.RecordParams{
			Type:    RecordType,
			Name:    r.RecordName,
			Content: content,
			TTL:     AutomaticTTL,
			Proxied: DefaultProxied,
		})
		if err != nil {
			return Failed, &TickError{Step: StepCreateRecord, Err: fmt.Errorf("creating DNS record %s: %w", r.RecordName, err)}
		}
		r.Log.Info("DNS record created", recordKeys(created)...)
		return Created, nil
	}

	r.Log.V(1).Info("found DNS record", "record", record.Name, "id", record.ID)
	if record.Content == content {
		r.Log.V(1).Info("public IP matches the DNS record content, nothing to update", "ip", content)
		return Unchanged, nil
	}

	r.Log.Info("public IP address has changed, updating the DNS record", "old", record.Content, "new", content)
	updated, err := r.API.UpdateDNSRecord(ctx, details.ID, record.ID, cloudflare.RecordParams{
		Type:    record.Type,
		Name:    record.Name,
		Content: content,
		TTL:     record.TTL,
		Proxied: record.Proxied,
	})
	if err != nil {
		return Failed, &TickError{Step: StepUpdateRecord, Err: fmt.Errorf("updating DNS record %s: %w", record.ID, err)}
	}
	r.Log.Info("DNS record updated", recordKeys(updated)...)
	return Updated, nil
}

// Tick runs Reconcile and contains its failure: errors are logged and
// recorded, never returned.
func (r *Reconciler) Tick(ctx context.Context) Outcome {
	start := time.Now()
	outcome, err := r.Reconcile(ctx)
	if r.Observe != nil {
		r.Observe(outcome.String(), outcome == Failed, time.Since(start))
	}

	if err != nil {
		step := ""
		var te *TickError
		if errors.As(err, &te) {
			step = te.Step
		}
		r.Log.Error(err, "DDNS update failed", "step", step)
		return Failed
	}
	r.Log.V(1).Info("DDNS update finished", "outcome", outcome.String(), "duration", time.Since(start))
	return outcome
}

func findZone(zones []cloudflare.Zone, name string) (cloudflare.Zone, bool) {
	for _, z := range zones {
		if sameName(z.Name, name) {
			return z, true
		}
	}
	return cloudflare.Zone{}, false
}

func findRecord(records []cloudflare.DNSRecord, name string) (cloudflare.DNSRecord, bool) {
	for _, rec := range records {
		if sameName(rec.Name, name) {
			return rec, true
		}
	}
	return cloudflare.DNSRecord{}, false
}

// sameName compares DNS names ignoring case and a trailing dot.
func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSuffix(a, "."), strings.TrimSuffix(b, "."))
}

func recordKeys(rec cloudflare.DNSRecord) []any {
	return []any{"id", rec.ID, "name", rec.Name, "type", rec.Type, "content", rec.Content, "ttl", rec.TTL, "proxied", rec.Proxied}
}
