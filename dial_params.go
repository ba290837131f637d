package wsconsole

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

type (
	// DialParams is what the transport needs to open a connection.
	DialParams struct {
		URL    url.URL
		Header http.Header
	}

	// DialParamsGetter completes the parsed address with whatever the handshake needs, headers mostly.
	DialParamsGetter func(ctx context.Context, u url.URL) (DialParams, error)

	DialParamsRepo struct {
		logger logger
		getter DialParamsGetter
	}
)

// Get parses address and resolves the parameters to dial it.
func (r DialParamsRepo) Get(
	ctx context.Context,
	address string,
) (params DialParams, err error) {
	u, err := url.Parse(address)
	if err != nil {
		r.logger.Errorf("cannot parse address %q: %s", address, err)
		return params, errors.Wrapf(err, "cannot parse address %q", address)
	}

	params, err = r.getter(ctx, *u)
	if err != nil {
		r.logger.Errorf("cannot fetch dial params: %s", err)
	}
	return
}

func NewDialParamsRepo(
	logger logger,
	getter DialParamsGetter,
) DialParamsRepo {
	if getter == nil {
		getter = StaticHeaderDialParamsGetter(nil)
	}
	return DialParamsRepo{getter: getter, logger: logger.WithField("type", "dial_params_repo")}
}

// StaticHeaderDialParamsGetter sends a copy of h with every handshake.
func StaticHeaderDialParamsGetter(h http.Header) DialParamsGetter {
	return func(_ context.Context, u url.URL) (DialParams, error) {
		return DialParams{URL: u, Header: h.Clone()}, nil
	}
}
