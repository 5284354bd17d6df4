// Package state owns everything a language server session knows: the open
// documents, the class index and the compiler session. It is driven from a
// single dispatch loop and does no locking of its own.
package state

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"jls/internal/classpath"
	"jls/internal/compiler"
	"jls/internal/document"
	jlserrors "jls/internal/errors"
	"jls/internal/paths"
	"jls/internal/project"
	"jls/internal/slogutil"
)

// ErrDocumentNotOpen matches any error whose code is DOCUMENT_NOT_OPEN.
var ErrDocumentNotOpen = &jlserrors.JlsError{Code: jlserrors.DocumentNotOpen}

// SeverityError is the only severity the compiler diagnostics carry.
const SeverityError = 1

// Diagnostic is one compile error positioned for the editor. Line and
// Character are 0-based and the range is zero-width.
type Diagnostic struct {
	Line      int
	Character int
	Message   string
	Severity  int
	Source    string
}

// Sink receives diagnostics. An empty slice clears the URI. version is nil
// when the URI is not open.
type Sink interface {
	Publish(uri string, version *int, diagnostics []Diagnostic)
}

// ClasspathResolver produces the classpath for a project kind.
type ClasspathResolver interface {
	Classpath(ctx context.Context, kind project.Kind) string
}

// Location points at a position in a file.
type Location struct {
	URI       string
	Line      int
	Character int
}

// Range is a span in a document.
type Range struct {
	Start document.Position
	End   document.Position
}

// Change is one content change of a change notification. A nil Range
// replaces the whole document.
type Change struct {
	Range *Range
	Text  string
}

// Options configures a State.
type Options struct {
	Compiler *compiler.Session
	Resolver ClasspathResolver
	Indexer  *classpath.Indexer
	// IndexEnabled turns class indexing on; hover needs it.
	IndexEnabled bool
	Sink         Sink
	Logger       *slog.Logger
}

// State is the session state.
type State struct {
	docs     map[string]*document.Document
	classes  classpath.Index
	compiler *compiler.Session
	resolver ClasspathResolver
	indexer  *classpath.Indexer
	indexOn  bool
	sink     Sink
	logger   *slog.Logger
}

// New creates an empty state. Call LoadClasses to build the class index.
func New(opts Options) *State {
	s := &State{
		docs:     make(map[string]*document.Document),
		classes:  make(classpath.Index),
		compiler: opts.Compiler,
		resolver: opts.Resolver,
		indexer:  opts.Indexer,
		indexOn:  opts.IndexEnabled,
		sink:     opts.Sink,
		logger:   opts.Logger,
	}
	if s.logger == nil {
		s.logger = slogutil.NewDiscardLogger()
	}
	if s.indexer == nil {
		s.indexer = classpath.NewIndexer(s.logger, classpath.Options{})
	}
	return s
}

// LoadClasses rebuilds the class index from the compiler's current classpath.
func (s *State) LoadClasses(ctx context.Context) classpath.Stats {
	if !s.indexOn {
		s.classes = make(classpath.Index)
		return classpath.Stats{}
	}
	idx, stats := s.indexer.Index(ctx, s.compiler.Classpath())
	s.classes = idx
	return stats
}

// Classes returns the class index.
func (s *State) Classes() classpath.Index { return s.classes }

// Document returns the open document for uri.
func (s *State) Document(uri string) (*document.Document, bool) {
	d, ok := s.docs[paths.NormalizeURI(uri)]
	return d, ok
}

// OpenURIs returns the URIs of all open documents, sorted.
func (s *State) OpenURIs() []string {
	uris := make([]string, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// Open registers a document and recompiles. A document that cannot be parsed
// is logged and not registered.
func (s *State) Open(ctx context.Context, uri string, version int, text string) {
	uri = paths.NormalizeURI(uri)
	doc, err := document.New(ctx, uri, version, text)
	if err != nil {
		s.logger.Warn("Failed to open document", "uri", uri, "error", err.Error())
		return
	}
	s.docs[uri] = doc
	s.compileAndPublish(ctx, false)
}

// Change applies a change notification and recompiles. Unknown documents and
// notifications whose version is not newer than the document are ignored.
func (s *State) Change(ctx context.Context, uri string, version int, changes []Change) {
	uri = paths.NormalizeURI(uri)
	doc, ok := s.docs[uri]
	if !ok {
		s.logger.Debug("Change for unopened document", "uri", uri)
		return
	}
	if !doc.ShouldApply(version) {
		s.logger.Debug("Skipping stale change", "uri", uri, "version", version, "current", doc.Version())
		return
	}

	for _, c := range changes {
		var err error
		if c.Range == nil {
			err = doc.Replace(ctx, c.Text)
		} else {
			err = doc.ApplyEdit(ctx, c.Range.Start, c.Range.End, c.Text)
		}
		if err != nil {
			s.logger.Warn("Failed to apply change", "uri", uri, "version", version, "error", err.Error())
		}
	}
	doc.SetVersion(version)
	s.compileAndPublish(ctx, false)
}

// Save recompiles when uri is open.
func (s *State) Save(ctx context.Context, uri string) {
	if _, ok := s.docs[paths.NormalizeURI(uri)]; ok {
		s.compileAndPublish(ctx, false)
	}
}

// Close forgets the document. Nothing is published.
func (s *State) Close(uri string) {
	delete(s.docs, paths.NormalizeURI(uri))
}

// CompileAll recompiles every source and publishes the result.
func (s *State) CompileAll(ctx context.Context) {
	s.compileAndPublish(ctx, true)
}

// RefreshClasspath asks the build tool for the classpath again and rebuilds
// the class index. The project kind is not re-detected.
func (s *State) RefreshClasspath(ctx context.Context) classpath.Stats {
	if s.resolver != nil {
		s.compiler.SetClasspath(s.resolver.Classpath(ctx, s.compiler.Kind()))
	}
	return s.LoadClasses(ctx)
}

// Definition resolves the type under pos to the source file declaring it.
func (s *State) Definition(uri string, pos document.Position) (Location, bool, error) {
	doc, err := s.open(uri)
	if err != nil {
		return Location{}, false, err
	}
	fqn, ok := doc.SymbolAt(pos)
	if !ok {
		return Location{}, false, nil
	}
	rel := filepath.FromSlash(strings.ReplaceAll(fqn, ".", "/")) + s.compiler.SourceExtension()
	for _, root := range s.compiler.SourceRoots() {
		path := filepath.Join(root, rel)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return Location{URI: paths.FileURI(path)}, true, nil
		}
	}
	return Location{}, false, nil
}

// Hover describes the indexed class under pos as a markdown code block.
func (s *State) Hover(uri string, pos document.Position) (string, bool, error) {
	doc, err := s.open(uri)
	if err != nil {
		return "", false, err
	}
	fqn, ok := doc.SymbolAt(pos)
	if !ok {
		return "", false, nil
	}
	cd, ok := s.classes[fqn]
	if !ok {
		return "", false, nil
	}

	var b strings.Builder
	b.WriteString("```java\n")
	b.WriteString("class ")
	b.WriteString(cd.Name)
	b.WriteByte('\n')
	for _, m := range cd.Methods {
		b.WriteString("  ")
		b.WriteString(m.Signature())
		b.WriteByte('\n')
	}
	b.WriteString("```")
	return b.String(), true, nil
}

func (s *State) open(uri string) (*document.Document, error) {
	uri = paths.NormalizeURI(uri)
	doc, ok := s.docs[uri]
	if !ok {
		return nil, jlserrors.Newf(jlserrors.DocumentNotOpen, "document %s is not open", uri)
	}
	return doc, nil
}

// compileAndPublish publishes fresh diagnostics for every URI in the compile
// result, then clears every open document that has none. A compile that
// failed to run publishes nothing, so earlier diagnostics stay visible.
func (s *State) compileAndPublish(ctx context.Context, forceAll bool) {
	result := s.compiler.Compile(ctx, forceAll)
	if err := s.compiler.LastError(); err != nil {
		s.logger.Debug("Keeping previous diagnostics", "error", err.Error())
		return
	}
	if s.sink == nil {
		return
	}

	uris := make([]string, 0, len(result))
	for uri := range result {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	reported := make(map[string]bool, len(result))
	for _, uri := range uris {
		norm := paths.NormalizeURI(uri)
		reported[norm] = true
		s.sink.Publish(norm, s.versionOf(norm), toDiagnostics(result[uri]))
	}
	for _, uri := range s.OpenURIs() {
		if !reported[uri] {
			s.sink.Publish(uri, s.versionOf(uri), []Diagnostic{})
		}
	}
}

func (s *State) versionOf(uri string) *int {
	doc, ok := s.docs[uri]
	if !ok {
		return nil
	}
	v := doc.Version()
	return &v
}

func toDiagnostics(errs []compiler.CompileError) []Diagnostic {
	out := make([]Diagnostic, 0, len(errs))
	for _, e := range errs {
		line := e.Row - 1
		if line < 0 {
			line = 0
		}
		out = append(out, Diagnostic{
			Line:      line,
			Character: e.Column,
			Message:   e.Message,
			Severity:  SeverityError,
			Source:    "javac",
		})
	}
	return out
}
