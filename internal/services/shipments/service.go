package shipments

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BearBump/PostiBox/internal/broker/messages"
	"github.com/BearBump/PostiBox/internal/cache"
	"github.com/BearBump/PostiBox/internal/integrations/posti"
	"github.com/BearBump/PostiBox/internal/models"
	"github.com/pkg/errors"
)

// Querier executes one authenticated carrier query. Satisfied by
// *posti.Session.
type Querier interface {
	ExecuteQuery(ctx context.Context, payload string) (json.RawMessage, error)
}

type Repository interface {
	SaveSnapshot(ctx context.Context, snap models.Snapshot) error
	// GetSnapshot returns (nil, nil) when no snapshot exists yet.
	GetSnapshot(ctx context.Context, account string) (*models.Snapshot, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Account binds one carrier session to its display policy.
type Account struct {
	Name    string
	Session Querier
	Policy  Policy
}

type Service struct {
	repo       Repository
	cache      cache.BytesCache
	producer   Producer
	topic      string
	currentTTL time.Duration
}

func New(repo Repository, c cache.BytesCache, producer Producer, topic string, currentTTL time.Duration) *Service {
	return &Service{repo: repo, cache: c, producer: producer, topic: topic, currentTTL: currentTTL}
}

// Refresh runs one poll cycle for one account: fetch the shipment listing,
// aggregate it, persist the snapshot, refresh the cache and publish the
// update. Cache writes are best-effort; everything else aborts the cycle.
func (s *Service) Refresh(ctx context.Context, acct Account) (*models.Snapshot, error) {
	data, err := acct.Session.ExecuteQuery(ctx, posti.QueryGetShipments)
	if err != nil {
		return nil, err
	}

	var listing struct {
		Shipment []models.RawShipment `json:"shipment"`
	}
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, errors.Wrap(err, "decode shipment listing")
	}

	packages, freshness, err := Aggregate(listing.Shipment, acct.Policy)
	if err != nil {
		return nil, err
	}

	undelivered := 0
	for _, p := range packages {
		if p.Status != models.StatusDelivered {
			undelivered++
		}
	}
	snap := models.Snapshot{
		Account:          acct.Name,
		Freshness:        freshness,
		Packages:         packages,
		UndeliveredCount: undelivered,
		DeliveredCount:   len(packages) - undelivered,
		FetchedAt:        time.Now().UTC(),
	}

	if s.repo != nil {
		if err := s.repo.SaveSnapshot(ctx, snap); err != nil {
			return nil, err
		}
	}
	s.cacheSnapshot(ctx, snap)

	if s.producer != nil {
		msg := messages.ShipmentsUpdated{
			Account:          snap.Account,
			FetchedAt:        snap.FetchedAt,
			Freshness:        snap.Freshness,
			Packages:         snap.Packages,
			UndeliveredCount: snap.UndeliveredCount,
			DeliveredCount:   snap.DeliveredCount,
		}
		b, err := json.Marshal(msg)
		if err != nil {
			return nil, errors.Wrap(err, "marshal update message")
		}
		if err := s.producer.Publish(ctx, s.topic, []byte(snap.Account), b); err != nil {
			return nil, errors.Wrap(err, "publish update")
		}
	}
	return &snap, nil
}

// GetCurrent returns the latest snapshot for an account, cache first.
// (nil, nil) means no cycle has completed yet.
func (s *Service) GetCurrent(ctx context.Context, account string) (*models.Snapshot, error) {
	if s.cache != nil && s.currentTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, currentKey(account)); err == nil && ok {
			var snap models.Snapshot
			if json.Unmarshal(b, &snap) == nil {
				return &snap, nil
			}
		}
	}

	if s.repo == nil {
		return nil, nil
	}
	snap, err := s.repo.GetSnapshot(ctx, account)
	if err != nil || snap == nil {
		return snap, err
	}
	s.cacheSnapshot(ctx, *snap)
	return snap, nil
}

// ApplyUpdate applies a consumed ShipmentsUpdated message, so a process
// without carrier access can keep snapshots current.
func (s *Service) ApplyUpdate(ctx context.Context, msg messages.ShipmentsUpdated) error {
	if msg.Account == "" {
		return errors.New("update message has no account")
	}
	snap := models.Snapshot{
		Account:          msg.Account,
		Freshness:        msg.Freshness,
		Packages:         msg.Packages,
		UndeliveredCount: msg.UndeliveredCount,
		DeliveredCount:   msg.DeliveredCount,
		FetchedAt:        msg.FetchedAt,
	}
	if s.repo != nil {
		if err := s.repo.SaveSnapshot(ctx, snap); err != nil {
			return err
		}
	}
	s.cacheSnapshot(ctx, snap)
	return nil
}

func (s *Service) cacheSnapshot(ctx context.Context, snap models.Snapshot) {
	if s.cache == nil || s.currentTTL <= 0 {
		return
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, currentKey(snap.Account), b, s.currentTTL)
}

func currentKey(account string) string {
	return "posti:current:" + account
}
