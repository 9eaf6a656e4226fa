package support

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"strconv"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/pixcanon/internal/server"
)

// RegisterServerSteps registers decode API steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the decode server is running$`, func() error {
		return testCtx.startTestHTTPServer(server.Config{})
	})
	sc.Step(`^the decode server is running with a limit of (\d+) requests? per minute$`, func(n int) error {
		return testCtx.startTestHTTPServer(server.Config{RateLimitPerMinute: n})
	})
	sc.Step(`^I upload "([^"]*)" to "([^"]*)"$`, testCtx.uploadFile)
	sc.Step(`^I send a (GET|POST|OPTIONS) request to "([^"]*)"$`, testCtx.request)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONFieldShouldBe)
	sc.Step(`^the response should be a (\d+)x(\d+) PNG image$`, testCtx.theResponseShouldBePNG)
}

func (testCtx *TestContext) theResponseStatusShouldBe(status int) error {
	if testCtx.LastHTTPStatusCode != status {
		return fmt.Errorf("expected status %d, got %d\nBody: %s",
			status, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !bytes.Contains(testCtx.LastHTTPResponse, []byte(text)) {
		return fmt.Errorf("response does not contain '%s'\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, value string) error {
	if got := testCtx.LastHTTPHeaders.Get(name); got != value {
		return fmt.Errorf("expected header %s to be %q, got %q", name, value, got)
	}
	return nil
}

// theJSONFieldShouldBe walks a dotted path through the JSON response.
func (testCtx *TestContext) theJSONFieldShouldBe(field, expected string) error {
	var current any
	if err := json.Unmarshal(testCtx.LastHTTPResponse, &current); err != nil {
		return fmt.Errorf("response is not valid JSON: %w", err)
	}
	for _, key := range strings.Split(field, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return fmt.Errorf("field %s: %q is not an object", field, key)
		}
		if current, ok = obj[key]; !ok {
			return fmt.Errorf("field %s not found in %s", field, testCtx.LastHTTPResponse)
		}
	}

	var got string
	switch v := current.(type) {
	case string:
		got = v
	case float64:
		got = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		got = fmt.Sprint(v)
	}
	if got != expected {
		return fmt.Errorf("expected %s to be %q, got %q", field, expected, got)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldBePNG(width, height int) error {
	img, err := png.Decode(bytes.NewReader(testCtx.LastHTTPResponse))
	if err != nil {
		return fmt.Errorf("response is not a PNG: %w", err)
	}
	return expectSize(img, width, height)
}
