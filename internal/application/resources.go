package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/fduhole/dxkit/internal/domain/model"
	"github.com/fduhole/dxkit/internal/domain/port/driven"
)

// Slot names, used for logging and to key in-flight loads.
const (
	slotUser      = "user"
	slotTags      = "tags"
	slotDivisions = "divisions"
	slotFavorites = "favorites"
	slotCourses   = "courses"
)

// DiskCaches are the persisted slots of a ResourceCache.
type DiskCaches struct {
	User    driven.ValueCache[model.User]
	Tags    driven.ValueCache[[]model.Tag]
	Courses driven.ValueCache[model.CourseCache]
}

// ResourceCache owns the independently loadable resources the app surfaces
// need. Each slot is loaded at most once until ClearAll; concurrent loads of
// the same slot share a single remote call.
type ResourceCache struct {
	auth       driven.AuthAPI
	forum      driven.ForumAPI
	curriculum driven.CurriculumAPI
	disks      DiskCaches

	user      *Observable[model.User]
	tags      *Observable[[]model.Tag]
	divisions *Observable[[]model.Division]
	favorites *Observable[[]int]
	courses   *Observable[[]model.CourseGroup]

	flight      singleflight.Group
	generation  atomic.Uint64
	forumLoaded atomic.Bool

	mu          sync.Mutex
	courseCache *model.CourseCache
	// bypass marks disk slots whose content predates the last ClearAll.
	bypass map[string]bool
}

// NewResourceCache creates an empty ResourceCache. Observers are notified
// through dispatcher.
func NewResourceCache(
	auth driven.AuthAPI,
	forum driven.ForumAPI,
	curriculum driven.CurriculumAPI,
	disks DiskCaches,
	dispatcher Dispatcher,
) *ResourceCache {
	return &ResourceCache{
		auth:       auth,
		forum:      forum,
		curriculum: curriculum,
		disks:      disks,
		user:       NewObservable[model.User](dispatcher),
		tags:       NewObservable[[]model.Tag](dispatcher),
		divisions:  NewObservable[[]model.Division](dispatcher),
		favorites:  NewObservable[[]int](dispatcher),
		courses:    NewObservable[[]model.CourseGroup](dispatcher),
		bypass:     make(map[string]bool),
	}
}

// Observables, for subscribers.

func (r *ResourceCache) UserState() *Observable[model.User]             { return r.user }
func (r *ResourceCache) TagsState() *Observable[[]model.Tag]            { return r.tags }
func (r *ResourceCache) DivisionsState() *Observable[[]model.Division]  { return r.divisions }
func (r *ResourceCache) FavoritesState() *Observable[[]int]             { return r.favorites }
func (r *ResourceCache) CoursesState() *Observable[[]model.CourseGroup] { return r.courses }

// User returns the cached user and whether it is loaded.
func (r *ResourceCache) User() (model.User, bool) {
	return r.user.Load()
}

// IsAdmin reports whether the cached user has admin rights. False when no
// user is loaded.
func (r *ResourceCache) IsAdmin() bool {
	u, ok := r.user.Load()
	return ok && u.IsAdmin
}

// Tags returns the cached tags, or an empty slice.
func (r *ResourceCache) Tags() []model.Tag {
	if tags := r.tags.Get(); tags != nil {
		return tags
	}
	return []model.Tag{}
}

// Divisions returns the cached divisions, or nil when not loaded.
func (r *ResourceCache) Divisions() []model.Division {
	return r.divisions.Get()
}

// FavoriteIDs returns the cached favorite hole ids, or nil when not loaded.
func (r *ResourceCache) FavoriteIDs() []int {
	return r.favorites.Get()
}

// IsFavorite reports whether holeID is among the cached favorites.
func (r *ResourceCache) IsFavorite(holeID int) bool {
	return slices.Contains(r.favorites.Get(), holeID)
}

// Courses returns the published course groups, or nil when not loaded.
func (r *ResourceCache) Courses() []model.CourseGroup {
	return r.courses.Get()
}

// ForumLoaded reports whether the last LoadForum completed without error
// since the last ClearAll.
func (r *ResourceCache) ForumLoaded() bool {
	return r.forumLoaded.Load()
}

// LoadUser loads the signed-in user once, preferring the disk cache.
func (r *ResourceCache) LoadUser(ctx context.Context) error {
	return loadSlot(ctx, r, slotUser, r.user, r.disks.User, r.auth.LoadUserInfo)
}

// LoadTags loads the forum tags once, preferring the disk cache.
func (r *ResourceCache) LoadTags(ctx context.Context) error {
	return loadSlot(ctx, r, slotTags, r.tags, r.disks.Tags, r.forum.LoadTags)
}

// LoadDivisions loads the forum divisions once. Memory only.
func (r *ResourceCache) LoadDivisions(ctx context.Context) error {
	return loadSlot(ctx, r, slotDivisions, r.divisions, nil, r.forum.LoadDivisions)
}

// LoadFavoriteIDs loads the favorite hole ids once. Memory only.
func (r *ResourceCache) LoadFavoriteIDs(ctx context.Context) error {
	return loadSlot(ctx, r, slotFavorites, r.favorites, nil, r.forum.LoadFavoriteIDs)
}

// loadSlot implements the load-once rule: a populated slot returns at once;
// otherwise the disk cache (if any, and not bypassed) is consulted, then the
// remote fetch. A failed fetch leaves the slot empty so a later call retries.
func loadSlot[T any](
	ctx context.Context,
	r *ResourceCache,
	name string,
	slot *Observable[T],
	disk driven.ValueCache[T],
	fetch func(context.Context) (T, error),
) error {
	if slot.Loaded() {
		return nil
	}

	epoch := slot.epoch()
	return r.shared(ctx, fmt.Sprintf("%s#%d", name, epoch), func(ctx context.Context) error {
		if slot.Loaded() {
			return nil
		}

		if disk != nil && !r.bypassed(name) {
			v, found, err := disk.Load()
			switch {
			case err != nil:
				slog.Warn("disk cache unreadable, fetching", "slot", name, "error", err)
				if err := disk.Remove(); err != nil {
					slog.Warn("disk cache remove failed", "slot", name, "error", err)
				}
			case found:
				slot.publishAt(epoch, v)
				slog.Debug("slot loaded from disk", "slot", name)
				return nil
			}
		}

		v, err := fetch(ctx)
		if err != nil {
			return err
		}

		if disk != nil {
			if err := disk.Store(v); err != nil {
				slog.Warn("disk cache write failed", "slot", name, "error", err)
			}
		}
		if slot.publishAt(epoch, v) {
			r.clearBypass(name)
		}

		slog.Debug("slot loaded from remote", "slot", name)
		return nil
	})
}

// shared runs load at most once per key across concurrent callers. The load
// is detached from ctx's cancellation so that it completes and populates its
// slot even when every caller has gone away; a caller whose ctx ends first
// returns ctx.Err() without waiting.
func (r *ResourceCache) shared(ctx context.Context, key string, load func(context.Context) error) error {
	detached := context.WithoutCancel(ctx)
	ch := r.flight.DoChan(key, func() (any, error) {
		return nil, load(detached)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LoadCourses validates the course catalog by hash. The hash is always
// fetched; the cached groups are published when the hashes match, otherwise
// the full catalog is downloaded and stored with the new hash.
func (r *ResourceCache) LoadCourses(ctx context.Context) error {
	epoch := r.courses.epoch()
	return r.shared(ctx, fmt.Sprintf("%s#%d", slotCourses, epoch), func(ctx context.Context) error {
		hash, err := r.curriculum.LoadCourseHash(ctx)
		if err != nil {
			return err
		}

		if cached, ok := r.cachedCourses(); ok && cached.Hash == hash {
			r.courses.publishAt(epoch, cached.Groups)
			slog.Debug("course cache valid", "hash", hash)
			return nil
		}

		groups, err := r.curriculum.LoadCourseGroups(ctx)
		if err != nil {
			return err
		}

		entry := model.CourseCache{Hash: hash, Groups: groups}
		if err := r.disks.Courses.Store(entry); err != nil {
			slog.Warn("disk cache write failed", "slot", slotCourses, "error", err)
		}

		r.mu.Lock()
		if r.courses.epoch() == epoch {
			r.courseCache = &entry
			delete(r.bypass, slotCourses)
		}
		r.mu.Unlock()

		r.courses.publishAt(epoch, groups)
		slog.Info("course catalog downloaded", "hash", hash, "groups", len(groups))
		return nil
	})
}

// cachedCourses returns the in-memory course cache, falling back to disk.
func (r *ResourceCache) cachedCourses() (model.CourseCache, bool) {
	r.mu.Lock()
	if r.courseCache != nil {
		c := *r.courseCache
		r.mu.Unlock()
		return c, true
	}
	bypass := r.bypass[slotCourses]
	r.mu.Unlock()

	if bypass {
		return model.CourseCache{}, false
	}

	c, found, err := r.disks.Courses.Load()
	if err != nil {
		slog.Warn("disk cache unreadable, fetching", "slot", slotCourses, "error", err)
		if err := r.disks.Courses.Remove(); err != nil {
			slog.Warn("disk cache remove failed", "slot", slotCourses, "error", err)
		}
		return model.CourseCache{}, false
	}
	if !found {
		return model.CourseCache{}, false
	}

	r.mu.Lock()
	r.courseCache = &c
	r.mu.Unlock()
	return c, true
}

// ToggleFavorite adds holeID to the favorites, or removes it if present, and
// publishes the list returned by the server.
func (r *ResourceCache) ToggleFavorite(ctx context.Context, holeID int) error {
	epoch := r.favorites.epoch()
	ids, err := r.forum.ToggleFavorite(ctx, holeID, !r.IsFavorite(holeID))
	if err != nil {
		return err
	}
	r.favorites.publishAt(epoch, ids)
	return nil
}

// LoadForum loads tags, user, divisions and favorite ids in parallel, each
// only if its slot is empty. It waits for every task, returns the first
// error, and marks the forum loaded only when all succeed. Neither a failing
// task nor a cancelled ctx aborts the fetches already in flight.
func (r *ResourceCache) LoadForum(ctx context.Context) error {
	gen := r.generation.Load()

	var g errgroup.Group
	g.Go(func() error { return r.LoadTags(ctx) })
	g.Go(func() error { return r.LoadUser(ctx) })
	g.Go(func() error { return r.LoadDivisions(ctx) })
	g.Go(func() error { return r.LoadFavoriteIDs(ctx) })
	if err := g.Wait(); err != nil {
		return err
	}

	if r.generation.Load() == gen {
		r.forumLoaded.Store(true)
	}
	return nil
}

// LoadCurriculum loads the course catalog (when not yet published) and the
// user in parallel, with LoadForum's failure semantics.
func (r *ResourceCache) LoadCurriculum(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		if r.courses.Loaded() {
			return nil
		}
		return r.LoadCourses(ctx)
	})
	g.Go(func() error { return r.LoadUser(ctx) })
	return g.Wait()
}

// ClearAll empties every in-memory slot. Disk files are kept, but the next
// load of a disk-backed slot ignores them and goes to the network, after
// which the file is overwritten.
func (r *ResourceCache) ClearAll() {
	r.generation.Add(1)
	r.forumLoaded.Store(false)

	r.mu.Lock()
	r.courseCache = nil
	r.bypass[slotUser] = true
	r.bypass[slotTags] = true
	r.bypass[slotCourses] = true
	r.mu.Unlock()

	r.user.reset()
	r.tags.reset()
	r.divisions.reset()
	r.favorites.reset()
	r.courses.reset()
}

func (r *ResourceCache) bypassed(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bypass[name]
}

func (r *ResourceCache) clearBypass(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bypass, name)
}
