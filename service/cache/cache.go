// Package cache is a small in-process cache for hot read paths, backed by
// freecache. Values are stored as JSON.
package cache

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/coocood/freecache"

	"github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/base/log"
	"github.com/bidhaus/goapi/base/metrics"
)

var ErrNotFound = errors.New("cache entry not found")

type Service interface {
	Get(ctx ctx.Ctx, key string, value interface{}) error
	Set(ctx ctx.Ctx, key string, value interface{}) error
	Del(ctx ctx.Ctx, key string) error

	// GetByFunc fills container from cache, falling back to getter on a miss
	// and caching its result.
	GetByFunc(ctx ctx.Ctx, key string, container interface{}, getter func() (interface{}, error)) error
}

type ServiceConfig struct {
	// Pfx namespaces the keys of one consumer
	Pfx string
	// Ttl is entry lifetime
	Ttl time.Duration
	// SizeMB is the freecache arena size
	SizeMB int
}

type impl struct {
	pfx   string
	ttl   time.Duration
	cache *freecache.Cache
	met   metrics.Service
}

func New(cfg ServiceConfig) Service {
	sizeMB := cfg.SizeMB
	if sizeMB <= 0 {
		sizeMB = 16
	}
	return &impl{
		pfx:   cfg.Pfx,
		ttl:   cfg.Ttl,
		cache: freecache.NewCache(sizeMB * 1024 * 1024),
		met:   metrics.New("cache." + cfg.Pfx),
	}
}

func (im *impl) key(key string) []byte {
	return []byte(im.pfx + ":" + key)
}

func (im *impl) Get(context ctx.Ctx, key string, value interface{}) error {
	data, err := im.cache.Get(im.key(key))
	if err != nil {
		im.met.BumpSum("miss", 1)
		return ErrNotFound
	}
	im.met.BumpSum("hit", 1)
	return json.Unmarshal(data, value)
}

func (im *impl) Set(context ctx.Ctx, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return im.cache.Set(im.key(key), data, int(im.ttl/time.Second))
}

func (im *impl) Del(context ctx.Ctx, key string) error {
	im.cache.Del(im.key(key))
	return nil
}

func (im *impl) GetByFunc(context ctx.Ctx, key string, container interface{}, getter func() (interface{}, error)) error {
	if err := im.Get(context, key, container); err == nil {
		return nil
	}

	value, err := getter()
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, container); err != nil {
		return err
	}

	if err := im.cache.Set(im.key(key), data, int(im.ttl/time.Second)); err != nil {
		context.WithFields(log.Fields{"err": err, "key": key}).Warn("failed to cache value")
	}
	return nil
}
