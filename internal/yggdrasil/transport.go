package yggdrasil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Transport performs a single call to a provider and returns the response body.
// An empty body means the provider has no data for the request.
type Transport interface {
	Call(ctx context.Context, method string, target string, body []byte, contentType string) ([]byte, error)
}

// HttpTransport is the Transport over *http.Client. Proxy, timeouts and TLS
// settings belong to the client, so they apply uniformly to every call.
type HttpTransport struct {
	http *http.Client
}

func NewHttpTransport(http *http.Client) *HttpTransport {
	return &HttpTransport{http: http}
}

func (t *HttpTransport) Call(ctx context.Context, method string, target string, body []byte, contentType string) ([]byte, error) {
	var requestBody io.Reader
	if body != nil {
		requestBody = bytes.NewReader(body)
	}

	request, err := http.NewRequestWithContext(ctx, method, target, requestBody)
	if err != nil {
		return nil, err
	}

	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}

	response, err := t.http.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	switch response.StatusCode {
	case http.StatusOK:
		return readBody(response.Body)
	// Mojang answers with 204 for the unknown profiles,
	// while some authlib-injector servers prefer 404
	case http.StatusNoContent, http.StatusNotFound:
		return nil, nil
	}

	return nil, errorFromResponse(response)
}

// Profiles are a few kilobytes at most, so anything larger isn't a valid answer
const maxResponseSize = 1 << 20

func readBody(body io.Reader) ([]byte, error) {
	result, err := io.ReadAll(io.LimitReader(body, maxResponseSize+1))
	if err != nil {
		return nil, err
	}

	if len(result) > maxResponseSize {
		return nil, &MalformedResponseError{Reason: fmt.Sprintf("response exceeds %d bytes", maxResponseSize)}
	}

	return result, nil
}

func errorFromResponse(response *http.Response) error {
	switch {
	case response.StatusCode == 400:
		type errorResponse struct {
			Error   string `json:"error"`
			Message string `json:"errorMessage"`
		}

		var decodedError errorResponse
		body, _ := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
		_ = json.Unmarshal(body, &decodedError)

		return &BadRequestError{ErrorType: decodedError.Error, Message: decodedError.Message}
	case response.StatusCode == 403:
		return &ForbiddenError{}
	case response.StatusCode == 429:
		return &TooManyRequestsError{}
	case response.StatusCode >= 500:
		return &ServerError{Status: response.StatusCode}
	}

	return fmt.Errorf("unexpected response status code: %d", response.StatusCode)
}
