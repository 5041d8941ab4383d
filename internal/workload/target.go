package workload

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/assoc/pkg/config"
	"github.com/Sumatoshi-tech/assoc/pkg/hashing"
	"github.com/Sumatoshi-tech/assoc/pkg/hashmap"
	"github.com/Sumatoshi-tech/assoc/pkg/maps"
	"github.com/Sumatoshi-tech/assoc/pkg/treemap"
)

// Key orders accepted by MapSpec.Order.
const (
	OrderNatural = "natural"
	OrderReverse = "reverse"
)

// ErrUnsupported is returned for navigation operations on a hash map.
var ErrUnsupported = errors.New("operation not supported by map kind")

// MapSpec selects and tunes a map.
type MapSpec struct {
	InitialCapacity *int    `json:"initial_capacity,omitempty"`
	Kind            string  `json:"kind"`
	Hasher          string  `json:"hasher,omitempty"`
	Order           string  `json:"order,omitempty"`
	LoadFactor      float64 `json:"load_factor,omitempty"`
}

// SpecFromConfig builds a MapSpec of the given kind from the map section of cfg.
func SpecFromConfig(cfg config.MapConfig, kind string) MapSpec {
	capacity := cfg.InitialCapacity

	return MapSpec{
		Kind:            kind,
		Hasher:          cfg.Hasher,
		InitialCapacity: &capacity,
		LoadFactor:      cfg.LoadFactor,
	}
}

// Target is a map under test with int keys and string values.
type Target struct {
	Map  maps.Map[int, string]
	Name string

	// Hash is set for hash maps, Tree for tree maps.
	Hash *hashmap.Map[int, string]
	Tree *treemap.Map[int, string]
}

// NewTarget builds the map described by spec. Observers and logger only apply to hash maps.
func NewTarget(spec MapSpec, logger *slog.Logger, observers ...hashmap.Observer) (*Target, error) {
	switch spec.Kind {
	case config.KindHash:
		return newHashTarget(spec, logger, observers)
	case config.KindTree:
		return newTreeTarget(spec)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidMapKind, spec.Kind)
	}
}

func newHashTarget(spec MapSpec, logger *slog.Logger, observers []hashmap.Observer) (*Target, error) {
	var opts []hashmap.Option[int, string]

	if spec.InitialCapacity != nil {
		opts = append(opts, hashmap.WithInitialCapacity[int, string](*spec.InitialCapacity))
	}

	if spec.LoadFactor != 0 {
		opts = append(opts, hashmap.WithLoadFactor[int, string](spec.LoadFactor))
	}

	if spec.Hasher != "" {
		hasher, err := HasherFor(spec.Hasher)
		if err != nil {
			return nil, err
		}

		opts = append(opts, hashmap.WithHasher[int, string](hasher))
	}

	if logger != nil {
		opts = append(opts, hashmap.WithLogger[int, string](logger))
	}

	for _, observer := range observers {
		opts = append(opts, hashmap.WithObserver[int, string](observer))
	}

	// Colliding keys are kept in key order so that tree buckets are deterministic.
	m, err := hashmap.NewOrdered(opts...)
	if err != nil {
		return nil, fmt.Errorf("hash map: %w", err)
	}

	return &Target{Map: m, Name: config.KindHash, Hash: m}, nil
}

func newTreeTarget(spec MapSpec) (*Target, error) {
	var m *treemap.Map[int, string]

	switch spec.Order {
	case "", OrderNatural:
		m = treemap.New[int, string]()
	case OrderReverse:
		var err error

		m, err = treemap.NewWithComparator[int, string](maps.Reverse(maps.Ordered[int]()))
		if err != nil {
			return nil, fmt.Errorf("tree map: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: order %q", ErrInvalidScenario, spec.Order)
	}

	return &Target{Map: m, Name: config.KindTree, Tree: m}, nil
}

// HasherFor returns the int key hasher registered under name.
func HasherFor(name string) (hashing.Hasher[int], error) {
	switch name {
	case config.HasherMaphash:
		return hashing.Comparable[int](), nil
	case config.HasherXXHash:
		return func(key int) uint32 {
			var buf [8]byte

			binary.LittleEndian.PutUint64(buf[:], uint64(key)) //nolint:gosec // sign bits are hashed, not interpreted.

			return hashing.Bytes(buf[:])
		}, nil
	case config.HasherMix:
		return hashing.Int[int](), nil
	case config.HasherIdentity:
		return hashing.Identity[int](), nil
	case config.HasherConstant:
		return func(int) uint32 { return 0 }, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidHasher, name)
	}
}

// Verify checks the structural invariants of the underlying map.
func (t *Target) Verify() error {
	if t.Hash != nil {
		return t.Hash.Verify()
	}

	return t.Tree.Verify()
}
