package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	model "hubspace/internal/device"
	"hubspace/internal/domain"
)

// ErrDeviceNotFound is returned for ids that are not on the account.
var ErrDeviceNotFound = errors.New("device not found")

// ErrNoStates is returned by SetDeviceState when called without states.
var ErrNoStates = errors.New("no states to set")

// DefaultConcurrency bounds the state requests RefreshStates runs at once.
const DefaultConcurrency = 4

// AccountIDSource yields the account that owns the devices.
type AccountIDSource interface {
	AccountID(ctx context.Context) (domain.AccountID, error)
}

// Service implements domain.DeviceService. It is safe for concurrent use.
type Service struct {
	accounts    AccountIDSource
	cloud       domain.CloudClient
	log         *logrus.Entry
	concurrency int

	mu      sync.RWMutex
	loaded  bool
	raw     []json.RawMessage
	devices []domain.Device
	index   map[string]int // metadevice id -> position in devices
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Service) { s.log = log.WithField("component", "devices") }
}

// WithConcurrency bounds concurrent state requests; n < 1 means 1.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n < 1 {
			n = 1
		}
		s.concurrency = n
	}
}

// New returns a device service for the account accounts resolves.
func New(accounts AccountIDSource, cloud domain.CloudClient, opts ...Option) *Service {
	s := &Service{
		accounts:    accounts,
		cloud:       cloud,
		log:         logrus.NewEntry(logrus.StandardLogger()).WithField("component", "devices"),
		concurrency: DefaultConcurrency,
		index:       map[string]int{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh reloads every device of the account. Documents that fail to parse
// are logged and skipped.
func (s *Service) Refresh(ctx context.Context) error {
	account, err := s.accounts.AccountID(ctx)
	if err != nil {
		return err
	}
	raws, err := s.cloud.Metadevices(ctx, account)
	if err != nil {
		return err
	}
	devices, err := model.ParseMetadevices(raws)
	if err != nil {
		s.log.WithError(err).Warn("some metadevices could not be parsed")
	}

	index := make(map[string]int, len(devices))
	for i, d := range devices {
		index[d.ID] = i
	}
	s.mu.Lock()
	s.raw = raws
	s.devices = devices
	s.index = index
	s.loaded = true
	s.mu.Unlock()
	s.log.WithField("devices", len(devices)).Debug("devices refreshed")
	return nil
}

func (s *Service) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Refresh(ctx)
}

// Devices returns the cached devices, loading them on first use.
func (s *Service) Devices(ctx context.Context) ([]domain.Device, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Device(nil), s.devices...), nil
}

// Device returns the device with metadevice id.
func (s *Service) Device(ctx context.Context, id string) (domain.Device, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return domain.Device{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return domain.Device{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return s.devices[i], nil
}

// RawDevices returns the metadevice documents as the API sent them,
// including rooms and other non-device entries.
func (s *Service) RawDevices(ctx context.Context) ([]json.RawMessage, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]json.RawMessage(nil), s.raw...), nil
}

// DeviceState fetches the current state of id and updates the cache.
func (s *Service) DeviceState(ctx context.Context, id string) ([]domain.State, error) {
	if _, err := s.Device(ctx, id); err != nil {
		return nil, err
	}
	account, err := s.accounts.AccountID(ctx)
	if err != nil {
		return nil, err
	}
	states, err := s.cloud.DeviceState(ctx, account, id)
	if err != nil {
		return nil, err
	}
	s.update(id, func(domain.Device) []domain.State { return states })
	return states, nil
}

// SetDeviceState writes states to id and merges them into the cache.
func (s *Service) SetDeviceState(ctx context.Context, id string, states ...domain.State) error {
	if len(states) == 0 {
		return ErrNoStates
	}
	if _, err := s.Device(ctx, id); err != nil {
		return err
	}
	account, err := s.accounts.AccountID(ctx)
	if err != nil {
		return err
	}
	if err := s.cloud.SetDeviceState(ctx, account, id, states); err != nil {
		return err
	}
	s.update(id, func(d domain.Device) []domain.State { return model.MergeStates(d.States, states) })
	s.log.WithFields(logrus.Fields{"device": id, "states": len(states)}).Info("device state set")
	return nil
}

// RefreshStates fetches the state of every device and returns the function
// values that changed since the previous snapshot. The cache is only
// updated when every request succeeds.
func (s *Service) RefreshStates(ctx context.Context) ([]domain.StateChange, error) {
	devices, err := s.Devices(ctx)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.AccountID(ctx)
	if err != nil {
		return nil, err
	}

	results := make([][]domain.State, len(devices))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, d := range devices {
		g.Go(func() error {
			states, err := s.cloud.DeviceState(gctx, account, d.ID)
			if err != nil {
				return fmt.Errorf("state of %s: %w", d.ID, err)
			}
			results[i] = states
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var changes []domain.StateChange
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range devices {
		pos, ok := s.index[d.ID]
		if !ok {
			continue
		}
		changes = append(changes, model.DiffStates(d.ID, s.devices[pos].States, results[i])...)
		s.devices[pos].States = results[i]
	}
	return changes, nil
}

func (s *Service) update(id string, states func(domain.Device) []domain.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[id]; ok {
		s.devices[i].States = states(s.devices[i])
	}
}

// Compile-time assertion that Service implements domain.DeviceService.
var _ domain.DeviceService = (*Service)(nil)
