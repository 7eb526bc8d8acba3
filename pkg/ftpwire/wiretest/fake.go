// Package wiretest provides a scripted in-memory implementation of the
// ftpwire boundary for facade tests: a fake remote tree, configurable
// capability answers, failure injection, and an exchange event log that
// makes serialization violations observable.
package wiretest

import (
	"bytes"
	"context"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/driftfs/ftpfs/pkg/ftpwire"
)

// Event records one phase of a protocol exchange. Every exchange appends a
// "begin" event when it starts and an "end" event when it completes; for
// streamed reads the end event is appended when the handle is closed.
type Event struct {
	Op    string
	Path  string
	Phase string
}

// Fake is an in-memory ftpwire.Conn with a scripted remote filesystem.
//
// The zero value is not usable; create with NewFake. All methods are safe
// for concurrent use, and concurrent exchanges are deliberately permitted
// so that tests can detect callers that fail to serialize.
type Fake struct {
	mu sync.Mutex

	dirs        map[string]bool
	files       map[string][]byte
	links       map[string]string
	modTimes    map[string]time.Time
	createTimes map[string]time.Time
	ownerModes  map[string]uint32
	checksums   map[string]ftpwire.RawChecksum

	features    map[ftpwire.Feature]bool
	checksumErr error
	infoErr     error
	latency     time.Duration
	connected   bool

	events        []Event
	inFlight      int
	overlapped    bool
	checksumCalls int
}

// NewFake returns a connected fake with an empty root directory and every
// optional feature enabled.
func NewFake() *Fake {
	return &Fake{
		dirs:        map[string]bool{"/": true},
		files:       map[string][]byte{},
		links:       map[string]string{},
		modTimes:    map[string]time.Time{},
		createTimes: map[string]time.Time{},
		ownerModes:  map[string]uint32{},
		checksums:   map[string]ftpwire.RawChecksum{},
		features: map[ftpwire.Feature]bool{
			ftpwire.FeatureMLST:          true,
			ftpwire.FeatureSetTime:       true,
			ftpwire.FeatureRecursiveList: true,
			ftpwire.FeatureHash:          true,
		},
		connected: true,
	}
}

// ============================================================================
// Scripting helpers
// ============================================================================

// AddFile places a file in the fake tree, creating parent directories.
func (f *Fake) AddFile(p string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureParents(p)
	f.files[p] = append([]byte(nil), data...)
}

// AddDir places a directory in the fake tree, creating parents.
func (f *Fake) AddDir(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureParents(p)
	f.dirs[p] = true
}

// AddLink places a symbolic link in the fake tree.
func (f *Fake) AddLink(p, target string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureParents(p)
	f.links[p] = target
}

// SetTimes scripts the create/modify timestamps reported for a path. A zero
// time is reported as the wire sentinel (unset).
func (f *Fake) SetTimes(p string, create, mod time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createTimes[p] = create
	f.modTimes[p] = mod
}

// SetOwnerMode scripts the owner permission bits reported for a path.
func (f *Fake) SetOwnerMode(p string, mode uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ownerModes[p] = mode
}

// SetChecksum scripts the checksum the server reports for a path.
func (f *Fake) SetChecksum(p, algorithm, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checksums[p] = ftpwire.RawChecksum{Algorithm: algorithm, Value: value}
}

// SetChecksumError makes every Checksum call fail with err.
func (f *Fake) SetChecksumError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checksumErr = err
}

// SetInfoError makes every GetInfo call fail with err (nil restores
// normal answers).
func (f *Fake) SetInfoError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infoErr = err
}

// SetFeature scripts a capability answer.
func (f *Fake) SetFeature(feat ftpwire.Feature, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.features[feat] = on
}

// SetLatency makes every exchange take at least d, widening the window in
// which unserialized callers would overlap.
func (f *Fake) SetLatency(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latency = d
}

// Disconnect simulates the session dropping; the next IsConnected reports
// false until a dialer reconnects the fake.
func (f *Fake) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

// ============================================================================
// Inspection helpers
// ============================================================================

// Events returns a copy of the exchange event log.
func (f *Fake) Events() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Event(nil), f.events...)
}

// Overlapped reports whether two exchanges were ever in flight at once.
func (f *Fake) Overlapped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.overlapped
}

// ChecksumCalls returns how many checksum round-trips the fake served.
func (f *Fake) ChecksumCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checksumCalls
}

// FileContent returns the current content of a fake file.
func (f *Fake) FileContent(p string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[p]
	return append([]byte(nil), data...), ok
}

// HasDir reports whether a directory exists in the fake tree.
func (f *Fake) HasDir(p string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirs[p]
}

// ModTime returns the scripted or recorded modification time of a path.
func (f *Fake) ModTime(p string) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.modTimes[p]
}

// ============================================================================
// ftpwire.Conn implementation
// ============================================================================

func (f *Fake) begin(op, p string) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > 1 {
		f.overlapped = true
	}
	f.events = append(f.events, Event{Op: op, Path: p, Phase: "begin"})
	latency := f.latency
	f.mu.Unlock()

	if latency > 0 {
		time.Sleep(latency)
	}
}

func (f *Fake) end(op, p string) {
	f.mu.Lock()
	f.inFlight--
	f.events = append(f.events, Event{Op: op, Path: p, Phase: "end"})
	f.mu.Unlock()
}

func (f *Fake) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *Fake) OpenRead(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.begin("read", p)

	f.mu.Lock()
	data, ok := f.files[p]
	f.mu.Unlock()
	if !ok {
		f.end("read", p)
		return nil, ftpwire.UnavailableError("no such file: " + p)
	}

	return &fakeStream{
		r:    bytes.NewReader(append([]byte(nil), data...)),
		fake: f,
		path: p,
	}, nil
}

// fakeStream keeps the exchange open until Close, mirroring a real data
// channel whose completion reply is drained at close time.
type fakeStream struct {
	r    *bytes.Reader
	fake *Fake
	path string
	once sync.Once
}

func (s *fakeStream) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

func (s *fakeStream) Close() error {
	s.once.Do(func() { s.fake.end("read", s.path) })
	return nil
}

func (f *Fake) Store(ctx context.Context, p string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.begin("store", p)
	defer f.end("store", p)

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dirs[p] {
		return ftpwire.UnavailableError("is a directory: " + p)
	}
	f.ensureParents(p)
	f.files[p] = data
	f.modTimes[p] = time.Now()
	return nil
}

func (f *Fake) RenameFile(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.begin("rename", from)
	defer f.end("rename", from)

	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[from]
	if !ok {
		return ftpwire.UnavailableError("no such file: " + from)
	}
	delete(f.files, from)
	f.ensureParents(to)
	f.files[to] = data
	f.moveAttrs(from, to)
	return nil
}

func (f *Fake) RenameDir(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.begin("rename", from)
	defer f.end("rename", from)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.dirs[from] {
		return ftpwire.UnavailableError("no such directory: " + from)
	}

	prefix := strings.TrimSuffix(from, "/") + "/"
	rewrite := func(m map[string][]byte) {
		for p, data := range m {
			if strings.HasPrefix(p, prefix) {
				m[to+"/"+strings.TrimPrefix(p, prefix)] = data
				delete(m, p)
			}
		}
	}
	rewrite(f.files)
	for p := range f.dirs {
		if strings.HasPrefix(p, prefix) {
			f.dirs[to+"/"+strings.TrimPrefix(p, prefix)] = true
			delete(f.dirs, p)
		}
	}
	delete(f.dirs, from)
	f.ensureParents(to)
	f.dirs[to] = true
	f.moveAttrs(from, to)
	return nil
}

func (f *Fake) DeleteFile(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.begin("delete", p)
	defer f.end("delete", p)

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[p]; !ok {
		if _, isLink := f.links[p]; isLink {
			delete(f.links, p)
			return nil
		}
		return ftpwire.UnavailableError("no such file: " + p)
	}
	delete(f.files, p)
	f.dropAttrs(p)
	return nil
}

func (f *Fake) MakeDir(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.begin("mkdir", p)
	defer f.end("mkdir", p)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dirs[p] {
		return ftpwire.UnavailableError("already exists: " + p)
	}
	f.ensureParents(p)
	f.dirs[p] = true
	f.modTimes[p] = time.Now()
	return nil
}

func (f *Fake) RemoveDir(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.begin("rmdir", p)
	defer f.end("rmdir", p)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.dirs[p] {
		return ftpwire.UnavailableError("no such directory: " + p)
	}
	if len(f.childrenLocked(p)) > 0 {
		return ftpwire.UnavailableError("directory not empty: " + p)
	}
	delete(f.dirs, p)
	f.dropAttrs(p)
	return nil
}

func (f *Fake) RemoveDirRecursive(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.begin("rmdir-r", p)
	defer f.end("rmdir-r", p)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.dirs[p] {
		return ftpwire.UnavailableError("no such directory: " + p)
	}

	prefix := strings.TrimSuffix(p, "/") + "/"
	for fp := range f.files {
		if strings.HasPrefix(fp, prefix) {
			delete(f.files, fp)
		}
	}
	for lp := range f.links {
		if strings.HasPrefix(lp, prefix) {
			delete(f.links, lp)
		}
	}
	for dp := range f.dirs {
		if strings.HasPrefix(dp, prefix) {
			delete(f.dirs, dp)
		}
	}
	delete(f.dirs, p)
	f.dropAttrs(p)
	return nil
}

func (f *Fake) List(ctx context.Context, p string, recursive bool) ([]ftpwire.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.begin("list", p)
	defer f.end("list", p)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.dirs[p] {
		return nil, ftpwire.UnavailableError("no such directory: " + p)
	}

	if recursive && !f.features[ftpwire.FeatureRecursiveList] {
		recursive = false
	}

	names := f.childrenLocked(p)
	if recursive {
		names = f.descendantsLocked(p)
	}
	sort.Strings(names)

	entries := make([]ftpwire.Entry, 0, len(names))
	for _, name := range names {
		full := joinPath(p, name)
		entry := f.entryLocked(full)
		entry.Name = name
		entries = append(entries, entry)
	}
	return entries, nil
}

func (f *Fake) GetInfo(ctx context.Context, p string) (*ftpwire.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.begin("stat", p)
	defer f.end("stat", p)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	if !f.features[ftpwire.FeatureMLST] {
		return nil, ftpwire.NotImplementedError("MLST not supported")
	}

	_, isFile := f.files[p]
	_, isLink := f.links[p]
	if !isFile && !isLink && !f.dirs[p] {
		return nil, nil
	}

	entry := f.entryLocked(p)
	entry.Name = path.Base(p)
	return &entry, nil
}

func (f *Fake) SetModTime(ctx context.Context, p string, t time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.begin("settime", p)
	defer f.end("settime", p)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.features[ftpwire.FeatureSetTime] {
		return ftpwire.NotImplementedError("MFMT not supported")
	}
	if _, ok := f.files[p]; !ok && !f.dirs[p] {
		return ftpwire.UnavailableError("no such path: " + p)
	}
	f.modTimes[p] = t
	return nil
}

func (f *Fake) Checksum(ctx context.Context, p string) (*ftpwire.RawChecksum, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.begin("hash", p)
	defer f.end("hash", p)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.checksumCalls++

	if f.checksumErr != nil {
		return nil, f.checksumErr
	}
	if cs, ok := f.checksums[p]; ok {
		return &cs, nil
	}
	return nil, ftpwire.NotImplementedError("HASH not supported")
}

func (f *Fake) HasFeature(feat ftpwire.Feature) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.features[feat]
}

func (f *Fake) Quit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

// ============================================================================
// Internals
// ============================================================================

func (f *Fake) entryLocked(p string) ftpwire.Entry {
	entry := ftpwire.Entry{
		ModTime:    f.modTimes[p],
		CreateTime: f.createTimes[p],
		OwnerMode:  f.ownerModes[p],
	}

	switch {
	case f.dirs[p]:
		entry.Type = ftpwire.EntryTypeDir
	default:
		if target, ok := f.links[p]; ok {
			entry.Type = ftpwire.EntryTypeLink
			entry.Target = target
		} else {
			entry.Type = ftpwire.EntryTypeFile
			entry.Size = uint64(len(f.files[p]))
		}
	}
	return entry
}

// childrenLocked returns the names directly under dir.
func (f *Fake) childrenLocked(dir string) []string {
	seen := map[string]bool{}
	collect := func(p string) {
		parent, name := splitPath(p)
		if parent == dir && name != "" {
			seen[name] = true
		}
	}
	for p := range f.files {
		collect(p)
	}
	for p := range f.links {
		collect(p)
	}
	for p := range f.dirs {
		collect(p)
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	return names
}

// descendantsLocked returns all paths under dir, relative to dir.
func (f *Fake) descendantsLocked(dir string) []string {
	prefix := strings.TrimSuffix(dir, "/") + "/"
	if dir == "/" {
		prefix = "/"
	}

	seen := map[string]bool{}
	collect := func(p string) {
		if p != dir && strings.HasPrefix(p, prefix) {
			seen[strings.TrimPrefix(p, prefix)] = true
		}
	}
	for p := range f.files {
		collect(p)
	}
	for p := range f.links {
		collect(p)
	}
	for p := range f.dirs {
		collect(p)
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	return names
}

// ensureParents creates the directory chain above p.
func (f *Fake) ensureParents(p string) {
	for dir := path.Dir(p); dir != "/" && dir != "."; dir = path.Dir(dir) {
		f.dirs[dir] = true
	}
	f.dirs["/"] = true
}

func (f *Fake) moveAttrs(from, to string) {
	if t, ok := f.modTimes[from]; ok {
		f.modTimes[to] = t
	}
	if t, ok := f.createTimes[from]; ok {
		f.createTimes[to] = t
	}
	if m, ok := f.ownerModes[from]; ok {
		f.ownerModes[to] = m
	}
	f.dropAttrs(from)
}

func (f *Fake) dropAttrs(p string) {
	delete(f.modTimes, p)
	delete(f.createTimes, p)
	delete(f.ownerModes, p)
	delete(f.checksums, p)
}

func splitPath(p string) (dir, name string) {
	return path.Dir(p), path.Base(p)
}

func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

// Dialer hands out the same Fake on every dial and counts attempts.
type Dialer struct {
	mu    sync.Mutex
	fake  *Fake
	err   error
	dials int
}

// NewDialer creates a dialer that reconnects the given fake.
func NewDialer(f *Fake) *Dialer {
	return &Dialer{fake: f}
}

// SetError makes subsequent dials fail with err (nil restores success).
func (d *Dialer) SetError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// Dials returns how many successful dials were served.
func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *Dialer) Dial(ctx context.Context) (ftpwire.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	d.dials++

	d.fake.mu.Lock()
	d.fake.connected = true
	d.fake.mu.Unlock()
	return d.fake, nil
}
