package assets

import (
	"context"

	"github.com/R3E-Network/djcomponent/infrastructure/errors"
	"github.com/R3E-Network/djcomponent/internal/host"
	"github.com/R3E-Network/djcomponent/pkg/future"
	"github.com/R3E-Network/djcomponent/pkg/wire"
)

// Loader inserts script and stylesheet tags into a Host and keeps a
// Registry's loaded-set in sync with what it inserts.
type Loader struct {
	registry *Registry
	host     host.Host
}

// NewLoader builds a Loader over registry, inserting through host.
func NewLoader(registry *Registry, h host.Host) *Loader {
	return &Loader{registry: registry, host: h}
}

// LoadResult reports whether a call inserted a tag (false for a de-dup hit)
// and carries the call's wait future. That future is already resolved when
// LoadScript returns: the Host reports no load-completion event, so it does
// not track the browser-level load of the asset.
type LoadResult struct {
	Inserted bool
	Wait     *future.Future[struct{}]
}

// LoadScript inserts a script tag, marking its URL loaded at insertion time
// (if it has one) and returning immediately for an already-loaded URL
// without touching the host. A tag with no "src" attribute is inline-only:
// it is still inserted, but untracked. In every case the returned wait is
// resolved on return.
func (l *Loader) LoadScript(ctx context.Context, tag wire.TagDescriptor) (LoadResult, error) {
	if tag.Tag != "script" {
		return LoadResult{}, errors.BadTag("script", tag.Tag)
	}

	url, hasURL := tag.URL()
	if hasURL {
		if loaded, _ := l.registry.IsLoaded(Script, url); loaded {
			return LoadResult{Inserted: false, Wait: future.NewResolved(struct{}{})}, nil
		}
	}

	if err := l.host.InsertScript(ctx, tag); err != nil {
		return LoadResult{}, err
	}

	if hasURL {
		if err := l.registry.MarkLoaded(Script, url); err != nil {
			return LoadResult{}, err
		}
	}

	return LoadResult{Inserted: true, Wait: future.NewResolved(struct{}{})}, nil
}

// LoadStylesheet inserts a link tag. Stylesheets are fire-and-forget per
// spec: no load-completion wait is tracked, only de-dup by href.
func (l *Loader) LoadStylesheet(ctx context.Context, tag wire.TagDescriptor) error {
	if tag.Tag != "link" {
		return errors.BadTag("link", tag.Tag)
	}

	href, hasHref := tag.URL()
	if hasHref {
		if loaded, _ := l.registry.IsLoaded(Stylesheet, href); loaded {
			return nil
		}
	}

	if err := l.host.InsertStylesheet(ctx, tag); err != nil {
		return err
	}

	if hasHref {
		return l.registry.MarkLoaded(Stylesheet, href)
	}
	return nil
}
