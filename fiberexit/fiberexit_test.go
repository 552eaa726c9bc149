package fiberexit_test

import (
	"testing"

	"golang.org/x/tools/go/analysis/analysistest"

	"github.com/loomkit/fiber/fiberexit"
)

func TestAnalyzer(t *testing.T) {
	analysistest.Run(t, analysistest.TestData(), fiberexit.Analyzer, "a")
}
