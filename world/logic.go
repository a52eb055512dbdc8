// This file is part of go-mc/server project.
// Copyright (C) 2023.  Tnze
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package world

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/time/rate"

	"StreamCore/scene"
	"StreamCore/world/internal/space"
)

var (
	ErrNotInitialized  = errors.New("chunk logic not initialized")
	ErrInvalidPosition = errors.New("region position has a zero axis")
)

// Scene is the entity registry streamed by SceneChunkLogic.
type Scene interface {
	Roots() []scene.Handle
	Get(h scene.Handle) (*scene.Entity, bool)
	Register(e *scene.Entity) (scene.Handle, error)
	Destroy(h scene.Handle) bool
	Update(dt time.Duration)
}

// host is what chunks and regions need from the logic owning them.
type host interface {
	liveScene() Scene
	worldOffset() Offset
	bucket(key TensorKey) []scene.Handle
	entityLoaded(e *scene.Entity, h scene.Handle)
	notifyLoad(c *Chunk, entities int)
	notifyUnload(c *Chunk)
}

type (
	regionNode = space.Node[float64, *Region]
	regionTree = space.Tree[float64, *Region]
)

// SceneChunkLogic streams the entities of a scene in and out of chunks
// around the observer.
type SceneChunkLogic struct {
	log     *zap.Logger
	scene   Scene
	storage Storage
	config  Config
	dim     DimensionInfo
	ready   bool

	expiry    TicketExpiry
	limiter   *rate.Limiter
	allocator RegionAllocator

	tickLock sync.Mutex
	observer *Observer
	offset   Offset
	regions  map[IVec3]*Region
	// index holds the bounds of every resident region.
	index   regionTree
	nodes   map[IVec3]*regionNode
	tensor  Tensor
	scope   scopeList
	viewers []ChunkViewer

	tracking bool
	rebind   uuid.UUID
}

type Option func(l *SceneChunkLogic)

// WithTicketExpiry sets how tickets age. The default never expires them.
func WithTicketExpiry(expiry TicketExpiry) Option {
	return func(l *SceneChunkLogic) { l.expiry = expiry }
}

// WithLimiter limits how fast chunks are loaded.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(l *SceneChunkLogic) { l.limiter = limiter }
}

// WithRegionAllocator replaces the function creating new regions.
func WithRegionAllocator(allocator RegionAllocator) Option {
	return func(l *SceneChunkLogic) { l.allocator = allocator }
}

// NewSceneChunkLogic creates the logic. Storage may be nil, in which case
// nothing is read or persisted. Init must be called before the first
// Update.
func NewSceneChunkLogic(log *zap.Logger, sc Scene, storage Storage, config Config, opts ...Option) *SceneChunkLogic {
	l := &SceneChunkLogic{
		log:       log,
		scene:     sc,
		storage:   storage,
		config:    config,
		expiry:    NeverExpire{},
		limiter:   rate.NewLimiter(rate.Inf, 1),
		allocator: NewRegion,
		observer:  NewObserver(log.Named("observer")),
		regions:   make(map[IVec3]*Region),
		nodes:     make(map[IVec3]*regionNode),
		tensor:    make(Tensor),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Init validates the configuration and sets up the observer.
func (l *SceneChunkLogic) Init() error {
	l.tickLock.Lock()
	defer l.tickLock.Unlock()

	dim, err := l.config.Dimension()
	if err != nil {
		l.log.Error("Load world config fail", zap.Error(err))
		return fmt.Errorf("init chunk logic: %w", err)
	}
	l.dim = dim
	l.observer.SetWorldMetrics(dim.Size, l.config.RegionWidth)
	l.observer.SetShiftDist(l.config.ShiftDistance)
	l.observer.SetScope(l.config.Scope)
	l.ready = true
	l.log.Info("Chunk logic initialized",
		zap.Stringer("chunk size", dim.Size),
		zap.Int32("region width", l.config.RegionWidth),
		zap.Int32("scope", l.config.Scope),
		zap.Int32("shift distance", l.config.ShiftDistance),
	)
	return nil
}

// Update runs one streaming tick, then the scene update.
func (l *SceneChunkLogic) Update(dt time.Duration) {
	if !l.tick(dt) {
		return
	}
	l.scene.Update(dt)
}

func (l *SceneChunkLogic) liveScene() Scene                  { return l.scene }
func (l *SceneChunkLogic) worldOffset() Offset               { return l.offset }
func (l *SceneChunkLogic) bucket(k TensorKey) []scene.Handle { return l.tensor[k] }

func (l *SceneChunkLogic) entityLoaded(e *scene.Entity, h scene.Handle) {
	if l.rebind != uuid.Nil && e.UUID == l.rebind {
		l.rebind = uuid.Nil
		l.observer.SetTarget(h)
		l.log.Debug("Observer target restored", zap.Stringer("uuid", e.UUID))
	}
}

func (l *SceneChunkLogic) notifyLoad(c *Chunk, entities int) {
	for _, v := range l.viewers {
		v.ViewChunkLoad(c.region.position, c.position, entities)
	}
}

func (l *SceneChunkLogic) notifyUnload(c *Chunk) {
	for _, v := range l.viewers {
		v.ViewChunkUnload(c.region.position, c.position)
	}
}

// AddViewer registers a listener of chunk loads and unloads.
func (l *SceneChunkLogic) AddViewer(v ChunkViewer) {
	l.tickLock.Lock()
	defer l.tickLock.Unlock()
	for _, v2 := range l.viewers {
		if v2 == v {
			l.log.DPanic("append an exist viewer")
			return
		}
	}
	l.viewers = append(l.viewers, v)
}

// RemoveViewer reports whether v was registered.
func (l *SceneChunkLogic) RemoveViewer(v ChunkViewer) bool {
	l.tickLock.Lock()
	defer l.tickLock.Unlock()
	for i, v2 := range l.viewers {
		if v2 == v {
			last := len(l.viewers) - 1
			l.viewers[i] = l.viewers[last]
			l.viewers = l.viewers[:last]
			return true
		}
	}
	return false
}

// SetObserver makes the observer follow target.
func (l *SceneChunkLogic) SetObserver(target scene.Handle) {
	l.tickLock.Lock()
	defer l.tickLock.Unlock()
	if r := l.regions[l.observer.region]; r != nil {
		r.OnExit()
	}
	l.observer.SetTarget(target)
	l.rebind = uuid.Nil
	l.tracking = false
}

// Observer returns the observer. It is only safe to read between updates.
func (l *SceneChunkLogic) Observer() *Observer { return l.observer }

func (l *SceneChunkLogic) Offset() Offset {
	l.tickLock.Lock()
	defer l.tickLock.Unlock()
	return l.offset
}

// ScopeCheckFunction reports whether the chunk at offset pos from the
// observer is in its streaming scope.
func (l *SceneChunkLogic) ScopeCheckFunction(pos IVec3) bool {
	return ScopeCheck(pos, l.observer.Scope())
}

// GetRegion returns the resident region at pos, or nil.
func (l *SceneChunkLogic) GetRegion(pos IVec3) *Region {
	l.tickLock.Lock()
	defer l.tickLock.Unlock()
	return l.regions[pos]
}

// GetOrLoadRegion returns the region at pos, reading it from storage
// first if it is not resident.
func (l *SceneChunkLogic) GetOrLoadRegion(pos IVec3) (*Region, error) {
	l.tickLock.Lock()
	defer l.tickLock.Unlock()
	if pos.HasZero() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPosition, pos)
	}
	return l.getOrLoadRegion(pos), nil
}

func (l *SceneChunkLogic) getOrLoadRegion(pos IVec3) *Region {
	if r, ok := l.regions[pos]; ok {
		return r
	}
	if pos.HasZero() {
		l.log.DPanic("Region position has a zero axis", zap.Stringer("region", pos))
	}
	r := l.allocator(RegionCreateInfo{
		Log:       l.log,
		Width:     l.config.RegionWidth,
		Dimension: l.dim,
		Position:  pos,
		host:      l,
	})
	if err := r.Load(l.storage); err != nil {
		l.log.Error("Load region fail", zap.Stringer("region", pos), zap.Error(err))
	}
	r.PostLoad()
	l.regions[pos] = r
	l.nodes[pos] = l.index.Insert(r.Bounds(), r)
	return r
}

func (l *SceneChunkLogic) dropRegion(pos IVec3) {
	if n, ok := l.nodes[pos]; ok {
		l.index.Delete(n)
	}
	delete(l.nodes, pos)
	delete(l.regions, pos)
}

// reindex rebuilds the region index after the origin moved.
func (l *SceneChunkLogic) reindex() {
	l.index = regionTree{}
	for pos, r := range l.regions {
		l.nodes[pos] = l.index.Insert(r.Bounds(), r)
	}
}

func (l *SceneChunkLogic) regionKeys() []IVec3 {
	return sortVecs(maps.Keys(l.regions))
}

// RegionAt returns the resident region covering the world position p.
func (l *SceneChunkLogic) RegionAt(p FVec3) *Region {
	l.tickLock.Lock()
	defer l.tickLock.Unlock()
	var found *Region
	l.index.Find(space.TouchPoint(p), func(n *regionNode) bool {
		found = n.Value
		return false
	})
	return found
}

// GetChunk returns the materialized chunk, or nil.
func (l *SceneChunkLogic) GetChunk(region, chunk IVec3) *Chunk {
	l.tickLock.Lock()
	defer l.tickLock.Unlock()
	return l.getChunk(region, chunk)
}

func (l *SceneChunkLogic) getChunk(region, chunk IVec3) *Chunk {
	if r := l.regions[region]; r != nil {
		return r.GetChunk(chunk)
	}
	return nil
}

// GetGameObjectsAtChunk returns the entities standing in the chunk as of
// the last tick.
func (l *SceneChunkLogic) GetGameObjectsAtChunk(region, chunk IVec3) []scene.Handle {
	l.tickLock.Lock()
	defer l.tickLock.Unlock()
	b := l.tensor[TensorKey{Region: region, Chunk: chunk}]
	if len(b) == 0 {
		return nil
	}
	handles := make([]scene.Handle, len(b))
	copy(handles, b)
	return handles
}

// GetRegionAndChunk returns the region and chunk holding the world
// position p.
func (l *SceneChunkLogic) GetRegionAndChunk(p FVec3) (region, chunk IVec3) {
	l.tickLock.Lock()
	defer l.tickLock.Unlock()
	k := keyOf(p, l.dim.Size, l.config.RegionWidth, l.offset)
	return k.Region, k.Chunk
}

// CalculateCurrentChunk returns the global chunk index of the observer's
// target, or false if there is no target with a valid position.
func (l *SceneChunkLogic) CalculateCurrentChunk() (IVec3, bool) {
	l.tickLock.Lock()
	defer l.tickLock.Unlock()
	return l.calculateCurrentChunk()
}

func (l *SceneChunkLogic) calculateCurrentChunk() (IVec3, bool) {
	h, ok := l.observer.Target()
	if !ok {
		return IVec3{}, false
	}
	e, ok := l.scene.Get(h)
	if !ok {
		return IVec3{}, false
	}
	pos := FVec3(e.WorldPosition())
	if !pos.IsFinite() {
		return IVec3{}, false
	}
	l.observer.targetPosition = pos
	var g IVec3
	for i := range g {
		g[i] = chunkIndex(pos[i], l.dim.Size[i], l.offset.Chunk[i])
	}
	return g, true
}

// materialize returns the chunk at key, creating it with a Start ticket
// if needed.
func (l *SceneChunkLogic) materialize(key TensorKey) (*Chunk, error) {
	r := l.getOrLoadRegion(key.Region)
	if c := r.GetChunk(key.Chunk); c != nil {
		return c, nil
	}
	c, err := r.InitializeChunk(key.Chunk)
	if err != nil {
		return nil, err
	}
	c.AddTicket(Ticket{Type: TicketStart, Level: startTicketLevel})
	return c, nil
}

// updateChunk tickets the chunk lying delta chunks away from the
// observer.
func (l *SceneChunkLogic) updateChunk(delta IVec3, t Ticket) {
	region, chunk := l.observer.MathNeighbour(delta)
	c, err := l.materialize(TensorKey{Region: region, Chunk: chunk})
	if err != nil {
		l.log.DPanic("Resolve neighbour chunk fail", zap.Stringer("delta", delta), zap.Error(err))
		return
	}
	c.AddTicket(t)
}

func (l *SceneChunkLogic) observerTicket(level uint16) Ticket {
	return Ticket{Type: TicketObserver, Level: level, Remaining: l.expiry.Lifetime()}
}

// AddForcedTicket keeps the chunk resident regardless of the observer
// until RemoveForcedTicket.
func (l *SceneChunkLogic) AddForcedTicket(region, chunk IVec3, level uint16) error {
	l.tickLock.Lock()
	defer l.tickLock.Unlock()
	if region.HasZero() {
		return fmt.Errorf("%w: %v", ErrInvalidPosition, region)
	}
	c, err := l.materialize(TensorKey{Region: region, Chunk: chunk})
	if err != nil {
		return err
	}
	c.AddTicket(Ticket{Type: TicketForced, Level: level})
	return nil
}

// RemoveForcedTicket drops the Forced ticket of a resident chunk. The
// chunk then ages like any other.
func (l *SceneChunkLogic) RemoveForcedTicket(region, chunk IVec3) {
	l.tickLock.Lock()
	defer l.tickLock.Unlock()
	if c := l.getChunk(region, chunk); c != nil {
		c.RemoveTicket(TicketForced)
	}
}

// InitializeRegions loads the regions around the observer and gives the
// chunks of its scope a Start ticket.
func (l *SceneChunkLogic) InitializeRegions() error {
	l.tickLock.Lock()
	defer l.tickLock.Unlock()
	if !l.ready {
		return ErrNotInitialized
	}
	l.subtickObserver()
	l.initializeRegions()
	return nil
}

func (l *SceneChunkLogic) initializeRegions() {
	base := l.observer.region
	if base.HasZero() {
		base = IVec3{1, 1, 1}
	}
	for x := int32(-1); x <= 1; x++ {
		for y := int32(-1); y <= 1; y++ {
			for z := int32(-1); z <= 1; z++ {
				l.getOrLoadRegion(AddOffsetVec(base, IVec3{x, y, z}))
			}
		}
	}
	l.initializeChunks()
}

// InitializeChunks gives the chunks of the observer scope a Start ticket.
func (l *SceneChunkLogic) InitializeChunks() {
	l.tickLock.Lock()
	defer l.tickLock.Unlock()
	l.initializeChunks()
}

func (l *SceneChunkLogic) initializeChunks() {
	o := l.observer
	if o.region.HasZero() || o.chunk.HasZero() {
		return
	}
	t := Ticket{Type: TicketStart, Level: startTicketLevel}
	l.updateChunk(IVec3{}, t)
	for _, d := range l.scope.get(o.scope) {
		l.updateChunk(d, t)
	}
}

// Save persists every region. Entities standing in chunks that are not
// materialized yet get their chunk first.
func (l *SceneChunkLogic) Save() error {
	l.tickLock.Lock()
	defer l.tickLock.Unlock()
	return l.save()
}

func (l *SceneChunkLogic) save() (err error) {
	if !l.ready {
		return ErrNotInitialized
	}
	l.updateContainers()
	for _, pos := range l.regionKeys() {
		err = multierr.Append(err, l.regions[pos].Save(l.storage))
	}
	return err
}

// Reload saves everything, drops every region and streams the world back
// from storage. The observer follows its target again once the chunk
// holding it is loaded.
func (l *SceneChunkLogic) Reload() error {
	l.tickLock.Lock()
	defer l.tickLock.Unlock()

	o := l.observer
	var target uuid.UUID
	if h, ok := o.Target(); ok {
		if e, ok := l.scene.Get(h); ok {
			target = e.UUID
		}
	}
	if err := l.save(); err != nil {
		return fmt.Errorf("save before reload: %w", err)
	}

	region, chunk := o.region, o.chunk
	for _, pos := range l.regionKeys() {
		l.regions[pos].Unload(true)
		l.dropRegion(pos)
	}
	l.tensor = make(Tensor)
	o.SetTarget(scene.NilHandle)
	o.region, o.chunk = region, chunk
	l.rebind = target
	l.tracking = false
	l.initializeRegions()
	l.log.Info("Reloaded world", zap.Int("regions", len(l.regions)))
	return nil
}

// RestoreObserver streams the world in around a stored observer position.
// The observer follows the entity id once the chunk holding it is loaded.
func (l *SceneChunkLogic) RestoreObserver(id uuid.UUID, region, chunk IVec3) error {
	l.tickLock.Lock()
	defer l.tickLock.Unlock()
	if !l.ready {
		return ErrNotInitialized
	}
	if region.HasZero() || chunk.HasZero() {
		return fmt.Errorf("%w: region %v chunk %v", ErrInvalidPosition, region, chunk)
	}
	o := l.observer
	if r := l.regions[o.region]; r != nil {
		r.OnExit()
	}
	o.SetTarget(scene.NilHandle)
	o.region, o.chunk = region, chunk
	l.rebind = id
	l.tracking = false
	l.initializeRegions()
	return nil
}

// Close saves everything and closes the storage.
func (l *SceneChunkLogic) Close() error {
	l.tickLock.Lock()
	defer l.tickLock.Unlock()
	err := l.save()
	if l.storage != nil {
		err = multierr.Append(err, l.storage.Close())
	}
	return err
}

// Stats counts the resident world.
type Stats struct {
	Regions      int
	Chunks       int
	LoadedChunks int
	Entities     int
}

// Stats counts the resident regions, chunks and tracked entities.
func (l *SceneChunkLogic) Stats() (s Stats) {
	l.tickLock.Lock()
	defer l.tickLock.Unlock()
	s.Regions = len(l.regions)
	for _, r := range l.regions {
		for _, c := range r.chunks {
			s.Chunks++
			if c.state == StateLoaded {
				s.LoadedChunks++
			}
		}
	}
	s.Entities = l.tensor.Len()
	return
}
