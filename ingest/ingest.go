// Package ingest records git repositories in the match index: the
// repository itself, every file path at HEAD, and top-level Go symbols.
package ingest

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/teranos/searchq/completion"
	"github.com/teranos/searchq/errors"
	"github.com/teranos/searchq/storage"
)

const (
	// ProgressInterval defines how often to log progress while walking files
	ProgressInterval = 1000

	// MaxParseSize skips symbol extraction for larger Go files
	MaxParseSize = 1 << 20
)

// Index is the subset of storage.MatchIndex ingestion writes to
type Index interface {
	AddRepository(ctx context.Context, repo storage.Repository) (int64, error)
	ReplaceFiles(ctx context.Context, repoID int64, paths []string) error
	AddSymbol(ctx context.Context, repoID int64, path string, sym completion.Symbol) error
}

var _ Index = (*storage.MatchIndex)(nil)

// Result represents the result of ingesting one repository
type Result struct {
	RepositoryPath string    `json:"repository_path"`
	Repository     string    `json:"repository"`
	RemoteURL      string    `json:"remote_url,omitempty"`
	Branch         string    `json:"branch"`
	Commit         string    `json:"commit"`
	Files          int       `json:"files"`
	Symbols        int       `json:"symbols"`
	Success        bool      `json:"success"`
	Message        string    `json:"message"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
}

// Processor ingests repositories into an Index
type Processor struct {
	idx    Index
	logger *zap.SugaredLogger
	// Name overrides the repository name derived from the origin remote
	Name string
	// SkipSymbols disables Go symbol extraction
	SkipSymbols bool
}

// NewProcessor creates a processor writing to idx
func NewProcessor(idx Index, logger *zap.SugaredLogger) *Processor {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Processor{idx: idx, logger: logger}
}

// IngestRepository records the repository at path with default settings
func IngestRepository(ctx context.Context, idx Index, path string) (*Result, error) {
	return NewProcessor(idx, nil).Ingest(ctx, path)
}

type symbolAt struct {
	path string
	sym  completion.Symbol
}

// Ingest records the repository at path, replacing any files previously
// indexed under the same name.
func (p *Processor) Ingest(ctx context.Context, path string) (*Result, error) {
	result := &Result{RepositoryPath: path, StartTime: time.Now()}
	fail := func(err error) (*Result, error) {
		result.Message = err.Error()
		result.EndTime = time.Now()
		return result, err
	}

	repo, err := git.PlainOpen(path)
	if err != nil {
		return fail(errors.Wrapf(err, "failed to open repository %s", path))
	}

	result.RemoteURL = originURL(repo)
	result.Repository = p.Name
	if result.Repository == "" {
		result.Repository = repositoryName(path, result.RemoteURL)
	}

	head, err := repo.Head()
	if err != nil {
		return fail(errors.WithHint(errors.Wrap(err, "failed to resolve HEAD"),
			"the repository needs at least one commit"))
	}
	if head.Name().IsBranch() {
		result.Branch = head.Name().Short()
	}
	result.Commit = head.Hash().String()

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return fail(errors.Wrapf(err, "failed to load commit %s", head.Hash()))
	}
	tree, err := commit.Tree()
	if err != nil {
		return fail(errors.Wrap(err, "failed to load tree"))
	}

	var paths []string
	var symbols []symbolAt
	err = tree.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		paths = append(paths, f.Name)
		if len(paths)%ProgressInterval == 0 {
			p.logger.Debugw("Walking files", "repository", result.Repository, "files", len(paths))
		}
		if p.SkipSymbols || !isGoSource(f) {
			return nil
		}
		contents, err := f.Contents()
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", f.Name)
		}
		for _, sym := range goSymbols(f.Name, contents) {
			symbols = append(symbols, symbolAt{path: f.Name, sym: sym})
		}
		return nil
	})
	if err != nil {
		return fail(errors.Wrap(err, "failed to walk tree"))
	}

	repoID, err := p.idx.AddRepository(ctx, storage.Repository{
		Name:          result.Repository,
		RemoteURL:     result.RemoteURL,
		DefaultBranch: result.Branch,
	})
	if err != nil {
		return fail(err)
	}
	if err := p.idx.ReplaceFiles(ctx, repoID, paths); err != nil {
		return fail(err)
	}
	result.Files = len(paths)

	for _, s := range symbols {
		if err := p.idx.AddSymbol(ctx, repoID, s.path, s.sym); err != nil {
			return fail(err)
		}
	}
	result.Symbols = len(symbols)

	result.Success = true
	result.EndTime = time.Now()
	result.Message = "indexed " + result.Repository
	p.logger.Infow("Indexed repository",
		"repository", result.Repository,
		"commit", result.Commit,
		"files", result.Files,
		"symbols", result.Symbols,
		"duration", result.EndTime.Sub(result.StartTime),
	)
	return result, nil
}

func originURL(repo *git.Repository) string {
	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		return ""
	}
	if urls := remote.Config().URLs; len(urls) > 0 {
		return urls[0]
	}
	return ""
}

func repositoryName(path, remoteURL string) string {
	if name := RepoNameFromRemote(remoteURL); name != "" {
		return name
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return filepath.Base(path)
}

func isGoSource(f *object.File) bool {
	return strings.HasSuffix(f.Name, ".go") && f.Size <= MaxParseSize && f.Mode.IsFile()
}

// goSymbols extracts top-level declarations. Files that fail to parse yield
// whatever declarations were recovered.
func goSymbols(name, contents string) []completion.Symbol {
	fset := token.NewFileSet()
	f, _ := parser.ParseFile(fset, name, contents, parser.SkipObjectResolution)
	if f == nil {
		return nil
	}

	var syms []completion.Symbol
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv != nil && len(d.Recv.List) > 0 {
				syms = append(syms, completion.Symbol{
					Name:          d.Name.Name,
					Kind:          "method",
					ContainerName: receiverType(d.Recv.List[0].Type),
				})
				continue
			}
			syms = append(syms, completion.Symbol{Name: d.Name.Name, Kind: "function"})
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					syms = append(syms, completion.Symbol{Name: s.Name.Name, Kind: typeKind(s.Type)})
				case *ast.ValueSpec:
					kind := "variable"
					if d.Tok == token.CONST {
						kind = "constant"
					}
					for _, n := range s.Names {
						if n.Name != "_" {
							syms = append(syms, completion.Symbol{Name: n.Name, Kind: kind})
						}
					}
				}
			}
		}
	}
	return syms
}

func receiverType(expr ast.Expr) string {
	for {
		switch e := expr.(type) {
		case *ast.StarExpr:
			expr = e.X
		case *ast.IndexExpr:
			expr = e.X
		case *ast.IndexListExpr:
			expr = e.X
		case *ast.Ident:
			return e.Name
		default:
			return ""
		}
	}
}

func typeKind(expr ast.Expr) string {
	switch expr.(type) {
	case *ast.StructType:
		return "struct"
	case *ast.InterfaceType:
		return "interface"
	default:
		return "class"
	}
}
