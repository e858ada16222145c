package xhs

import (
	"context"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"
	"xhscrawler/pkg/cookie"
	xerrors "xhscrawler/pkg/errors"
	"xhscrawler/pkg/signer"
)

// NoPage omits the page parameter on the first creator request
const NoPage = -1

// CreatorClient talks to the creator platform API
type CreatorClient struct {
	*transport
	signer signer.Signer
}

// NewCreatorClient creates a creator API client
func NewCreatorClient(s signer.Signer, opts ...Option) *CreatorClient {
	return &CreatorClient{transport: newTransport(opts), signer: s}
}

// GetPublishedNotes fetches one page of the account's own notes. A
// negative page omits the parameter.
func (c *CreatorClient) GetPublishedNotes(ctx context.Context, page int, cookies string) (gjson.Result, error) {
	params := []Param{{"tab", "0"}}
	if page >= 0 {
		params = append(params, Param{"page", strconv.Itoa(page)})
	}
	target := Splice(CreatorPostedEndpoint, params)

	jar := cookie.Parse(cookies)
	a1 := cookie.Account(jar)
	if a1 == "" {
		return gjson.Result{}, xerrors.New(xerrors.KindCredentialsMissing, "creator requests need the %s cookie", cookie.AccountKey)
	}
	sig, err := c.signer.SignCreator(a1, target)
	if err != nil {
		return gjson.Result{}, err
	}
	headers := signer.CreatorHeaders()
	signer.ApplyCreator(headers, sig)

	return c.do(ctx, call{
		method:  http.MethodGet,
		target:  target,
		headers: headers,
		cookies: jar,
	})
}

// GetAllPublishedNotes follows data.page until the upstream returns -1.
// Any failing page aborts the walk.
func (c *CreatorClient) GetAllPublishedNotes(ctx context.Context, cookies string) ([]gjson.Result, error) {
	var notes []gjson.Result
	page := NoPage
	seen := map[int]bool{}
	for {
		res, err := c.GetPublishedNotes(ctx, page, cookies)
		if err != nil {
			return nil, err
		}
		data := res.Get("data")
		notes = append(notes, data.Get("notes").Array()...)

		next := data.Get("page")
		if !next.Exists() {
			return nil, xerrors.New(xerrors.KindMalformedItem, "creator page response has no data.page")
		}
		page = int(next.Int())
		if page == NoPage || seen[page] {
			break
		}
		seen[page] = true
	}
	return notes, nil
}
