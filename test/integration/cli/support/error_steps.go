package support

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/pixcanon/internal/raster"
)

// RegisterErrorSteps registers steps that inspect the last command error.
func (testCtx *TestContext) RegisterErrorSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the command should fail with a decode failure$`, testCtx.theCommandShouldFailWithDecodeFailure)
}

func (testCtx *TestContext) theErrorShouldMention(text string) error {
	if testCtx.LastError == nil {
		return fmt.Errorf("expected an error mentioning '%s', command succeeded", text)
	}
	if !strings.Contains(strings.ToLower(testCtx.LastError.Error()), strings.ToLower(text)) {
		return fmt.Errorf("error does not mention '%s': %v", text, testCtx.LastError)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFailWithDecodeFailure() error {
	if !errors.Is(testCtx.LastError, raster.ErrDecodeFailure) {
		return fmt.Errorf("expected a decode failure, got %v", testCtx.LastError)
	}
	return nil
}
