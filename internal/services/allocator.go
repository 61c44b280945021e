package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/axellelanca/shortlink/internal/codec"
	customerrors "github.com/axellelanca/shortlink/internal/errors"
	"github.com/axellelanca/shortlink/internal/models"
	"github.com/axellelanca/shortlink/internal/repository"
)

// Allocation strategies, selected with shortcode.strategy.
const (
	StrategySnowflake = "snowflake"
	StrategySequence  = "sequence"
	StrategyTempAlias = "temp_alias"
)

// IDGenerator hands out unique identifiers.
type IDGenerator interface {
	NextID() (uint64, error)
}

// Allocator assigns an id and alias to link and persists it. Every
// implementation keeps Decode(alias) == id.
type Allocator interface {
	Name() string
	Allocate(ctx context.Context, link *models.Link) error
}

// NewAllocator builds the allocator for strategy. The sequence strategy reads
// the current maximum id from the store to seed its counter.
func NewAllocator(ctx context.Context, strategy string, generator IDGenerator, c *codec.Codec, linkRepo repository.LinkRepository) (Allocator, error) {
	switch strings.ToLower(strategy) {
	case StrategySnowflake, "":
		if generator == nil {
			return nil, errors.Wrap(customerrors.ErrConfiguration, "snowflake strategy needs a generator")
		}
		return &SnowflakeAllocator{generator: generator, codec: c, linkRepo: linkRepo}, nil
	case StrategySequence:
		return NewSequenceAllocator(ctx, c, linkRepo)
	case StrategyTempAlias:
		return &TempAliasAllocator{codec: c, linkRepo: linkRepo}, nil
	default:
		return nil, errors.Wrapf(customerrors.ErrConfiguration, "unknown short code strategy %q", strategy)
	}
}

// SnowflakeAllocator takes ids from a time-ordered generator.
type SnowflakeAllocator struct {
	generator IDGenerator
	codec     *codec.Codec
	linkRepo  repository.LinkRepository
}

// Name returns the strategy name.
func (a *SnowflakeAllocator) Name() string { return StrategySnowflake }

// Allocate takes the next generator id and stores link under its alias.
func (a *SnowflakeAllocator) Allocate(ctx context.Context, link *models.Link) error {
	id, err := a.generator.NextID()
	if err != nil {
		return errors.Wrap(err, "generate id")
	}
	return assignAndCreate(ctx, a.codec, a.linkRepo, link, id)
}

// SequenceAllocator counts up from the largest stored id. It is only safe
// when a single process writes to the store.
type SequenceAllocator struct {
	last     atomic.Uint64
	codec    *codec.Codec
	linkRepo repository.LinkRepository
}

// NewSequenceAllocator seeds the counter with the largest stored id.
func NewSequenceAllocator(ctx context.Context, c *codec.Codec, linkRepo repository.LinkRepository) (*SequenceAllocator, error) {
	maxID, err := linkRepo.MaxID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "seed sequence")
	}
	a := &SequenceAllocator{codec: c, linkRepo: linkRepo}
	a.last.Store(maxID)
	return a, nil
}

// Name returns the strategy name.
func (a *SequenceAllocator) Name() string { return StrategySequence }

// Allocate does not give the id back on failure; gaps are harmless.
func (a *SequenceAllocator) Allocate(ctx context.Context, link *models.Link) error {
	return assignAndCreate(ctx, a.codec, a.linkRepo, link, a.last.Inc())
}

// TempAliasAllocator lets the store assign the id under a temporary alias,
// then rewrites the alias in the same transaction.
type TempAliasAllocator struct {
	codec    *codec.Codec
	linkRepo repository.LinkRepository
}

// Name returns the strategy name.
func (a *TempAliasAllocator) Name() string { return StrategyTempAlias }

// Allocate inserts link and encodes the id the store assigned.
func (a *TempAliasAllocator) Allocate(ctx context.Context, link *models.Link) error {
	return a.linkRepo.CreateLinkWithTempAlias(ctx, link, a.codec.Encode)
}

func assignAndCreate(ctx context.Context, c *codec.Codec, linkRepo repository.LinkRepository, link *models.Link, id uint64) error {
	alias, err := c.Encode(id)
	if err != nil {
		return err
	}
	link.ID = id
	link.Alias = alias
	return linkRepo.CreateLink(ctx, link)
}
