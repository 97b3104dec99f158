package jobs

import (
	"os"
	"testing"

	"paywatch.backend/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init("test")
	os.Exit(m.Run())
}
