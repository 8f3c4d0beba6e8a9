// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/campdir/core/access"
)

// Client provides easy and fast access to the REST api.
//
// With a router, the client talks directly to the mux router instead of
// marshalling HTTP over the network. That flavor is perfectly suited for
// unit tests. With a URL, the client makes genuine REST requests.
type Client struct {
	router     *mux.Router
	httpClient *http.Client
	url        string
	token      string
	auth       *access.Authorization
	ctx        context.Context
}

// NewClientWithRouter creates a client that makes pseudo-REST requests
// directly through the mux router.
//
// WithAuthorization() adds an authorization to the request context,
// WithToken() goes through the regular JWT middleware instead.
func NewClientWithRouter(router *mux.Router) Client {
	return Client{router: router}
}

// NewClientWithURL creates a client that makes REST requests to a running
// service.
func NewClientWithURL(url string) Client {
	return Client{
		url:        url,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// WithToken returns a new client carrying the bearer token.
func (c Client) WithToken(token string) Client {
	c.token = token
	return c
}

// WithAuthorization returns a new client with a specific authorization
// injected into the request context. This works only directly against the
// mux router, a normal client uses WithToken().
func (c Client) WithAuthorization(auth *access.Authorization) Client {
	c.auth = auth
	return c
}

// WithRole returns a new client with a fresh principal carrying the role.
// This works only directly against the mux router.
func (c Client) WithRole(role access.Role) Client {
	return c.WithAuthorization(&access.Authorization{
		UserID: uuid.New(),
		Role:   role,
	})
}

// WithContext returns a new client with a specific base request context.
func (c Client) WithContext(ctx context.Context) Client {
	c.ctx = ctx
	return c
}

// Context returns the request context of this client.
func (c Client) Context() context.Context {
	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if c.auth != nil {
		ctx = access.ContextWithAuthorization(ctx, c.auth)
	}
	return ctx
}

func (c Client) do(r *http.Request) (int, []byte, error) {
	if c.token != "" {
		r.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.router != nil {
		rec := httptest.NewRecorder()
		c.router.ServeHTTP(rec, r)
		return rec.Code, rec.Body.Bytes(), nil
	}
	res, err := c.httpClient.Do(r)
	if err != nil {
		return http.StatusInternalServerError, nil, err
	}
	defer res.Body.Close()
	resBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, resBody, nil
}

func unmarshalResult(resBody []byte, result interface{}) error {
	if resBody == nil || result == nil {
		return nil
	}
	if raw, ok := result.(*[]byte); ok {
		*raw = resBody
		return nil
	}
	return json.Unmarshal(resBody, result)
}

func statusError(status, want int, resBody []byte) error {
	return fmt.Errorf("handler returned wrong status code: got %v want %v. Error: %s",
		status, want, strings.TrimSpace(string(resBody)))
}

// RawGet gets the resource from path. Expects http.StatusOK as response,
// otherwise it will flag an error. Returns the actual http status code.
//
// The path can be extended with query strings.
//
// result can be map[string]interface{} or a raw *[]byte. result can be nil.
func (c Client) RawGet(path string, result interface{}) (int, error) {
	r, _ := http.NewRequestWithContext(c.Context(), http.MethodGet, c.url+Prefix+path, nil)
	status, resBody, err := c.do(r)
	if err != nil {
		return status, err
	}
	if status != http.StatusOK {
		return status, statusError(status, http.StatusOK, resBody)
	}
	return status, unmarshalResult(resBody, result)
}

// RawPost posts a resource to path. Expects http.StatusCreated or
// http.StatusOK as response, otherwise it will flag an error. Returns the
// actual http status code.
//
// body can also be a []byte, result can also be a raw *[]byte.
// result can be nil.
func (c Client) RawPost(path string, body interface{}, result interface{}) (int, error) {
	return c.send(http.MethodPost, path, body, result)
}

// RawPut puts a resource to path. Expects http.StatusCreated or
// http.StatusOK as response, otherwise it will flag an error. Returns the
// actual http status code.
func (c Client) RawPut(path string, body interface{}, result interface{}) (int, error) {
	return c.send(http.MethodPut, path, body, result)
}

func (c Client) send(method, path string, body interface{}, result interface{}) (int, error) {
	var err error
	j, ok := body.([]byte)
	if !ok && body != nil {
		j, err = json.Marshal(body)
		if err != nil {
			return http.StatusBadRequest, fmt.Errorf("%s to %s: %w", method, path, err)
		}
	}
	r, _ := http.NewRequestWithContext(c.Context(), method, c.url+Prefix+path, bytes.NewBuffer(j))
	r.Header.Set("Content-Type", "application/json")
	status, resBody, err := c.do(r)
	if err != nil {
		return status, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return status, statusError(status, http.StatusOK, resBody)
	}
	return status, unmarshalResult(resBody, result)
}

// RawDelete deletes the resource at path. Expects http.StatusOK as
// response, otherwise it will flag an error. Returns the actual http
// status code.
func (c Client) RawDelete(path string) (int, error) {
	r, _ := http.NewRequestWithContext(c.Context(), http.MethodDelete, c.url+Prefix+path, nil)
	status, resBody, err := c.do(r)
	if err != nil {
		return status, err
	}
	if status != http.StatusOK {
		return status, statusError(status, http.StatusOK, resBody)
	}
	return status, nil
}

// RawPutBlob uploads a file to path as multipart form, the way a browser
// submits a file input named "file". Expects http.StatusOK as response,
// otherwise it will flag an error. Returns the actual http status code.
func (c Client) RawPutBlob(path, filename, contentType string, blob []byte, result interface{}) (int, error) {
	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename)}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	if err != nil {
		return http.StatusBadRequest, err
	}
	if _, err := part.Write(blob); err != nil {
		return http.StatusBadRequest, err
	}
	if err := writer.Close(); err != nil {
		return http.StatusBadRequest, err
	}

	r, _ := http.NewRequestWithContext(c.Context(), http.MethodPut, c.url+Prefix+path, &buffer)
	r.Header.Set("Content-Type", writer.FormDataContentType())
	status, resBody, err := c.do(r)
	if err != nil {
		return status, err
	}
	if status != http.StatusOK {
		return status, statusError(status, http.StatusOK, resBody)
	}
	return status, unmarshalResult(resBody, result)
}
