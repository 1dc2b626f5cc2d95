package app

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/reghover/internal/hover"
)

// Document is an open source file hovers are resolved against.
type Document struct {
	// Path is the absolute file path.
	Path string

	// Name is the display name.
	Name string

	// LanguageID is the detected language, empty for unknown files.
	LanguageID string

	mu    sync.RWMutex
	text  string
	lines []string
}

// NewDocument creates a document from file content.
func NewDocument(path string, content []byte) *Document {
	d := &Document{
		Path:       path,
		Name:       filepath.Base(path),
		LanguageID: DetectLanguageID(path),
	}
	d.setText(string(content))
	return d
}

func (d *Document) setText(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = text
	d.lines = strings.Split(text, "\n")
}

// Text returns the document content.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

// LineCount returns the number of lines.
func (d *Document) LineCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.lines)
}

// Line returns line n (0-based) without its line ending.
func (d *Document) Line(n int) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if n < 0 || n >= len(d.lines) {
		return "", false
	}
	return strings.TrimSuffix(d.lines[n], "\r"), true
}

// Reload rereads the document from disk.
func (d *Document) Reload() error {
	content, err := os.ReadFile(d.Path)
	if err != nil {
		return err
	}
	d.setText(string(content))
	return nil
}

// HoverDocument returns the view of d the hover controller works on.
func (d *Document) HoverDocument() hover.Document {
	return hover.Document{
		Path:       d.Path,
		LanguageID: d.LanguageID,
		Text:       d.Text(),
	}
}

// DetectLanguageID maps assembly file extensions to language ids.
func DetectLanguageID(path string) string {
	switch filepath.Ext(path) {
	case ".asm", ".inc":
		return "asm"
	case ".nasm":
		return "nasm"
	case ".s", ".S":
		return "assembly"
	default:
		return ""
	}
}

// DocumentManager manages all open documents.
type DocumentManager struct {
	mu        sync.RWMutex
	documents map[string]*Document // path -> document
	active    *Document
}

// NewDocumentManager creates a new document manager.
func NewDocumentManager() *DocumentManager {
	return &DocumentManager{
		documents: make(map[string]*Document),
	}
}

// Open opens a document from a file and makes it active.
// An already open document is reread from disk.
func (dm *DocumentManager) Open(path string) (*Document, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()

	if doc, exists := dm.documents[absPath]; exists {
		if err := doc.Reload(); err != nil {
			return nil, err
		}
		dm.active = doc
		return doc, nil
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}

	doc := NewDocument(absPath, content)
	dm.documents[absPath] = doc
	dm.active = doc
	return doc, nil
}

// Close forgets a document.
func (dm *DocumentManager) Close(path string) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()

	delete(dm.documents, absPath)
	if dm.active != nil && dm.active.Path == absPath {
		dm.active = nil
	}
}

// Active returns the active document, or nil.
func (dm *DocumentManager) Active() *Document {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.active
}

// All returns the open documents sorted by path.
func (dm *DocumentManager) All() []*Document {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	docs := make([]*Document, 0, len(dm.documents))
	for _, d := range dm.documents {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs
}
