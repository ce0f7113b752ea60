package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("pennectl", "GET", "/health", 200, 12*time.Millisecond)
	RecordMessage("entities", "create")
	RecordInvoke()
	RecordReply("ok", 24*time.Millisecond)
	RecordReply("exception", 0)
	RecordSignal("noo::tbl_updated")
	RecordHandlerError("frame")

	log.Info().Msg("observability/metrics: registration idempotent and recording paths executed")
}

func TestRecordMessageCounts(t *testing.T) {
	before := testutil.ToFloat64(messagesReceived.WithLabelValues("tables", "update"))
	RecordMessage("tables", "update")
	RecordMessage("tables", "update")
	after := testutil.ToFloat64(messagesReceived.WithLabelValues("tables", "update"))
	assert.Equal(t, before+2, after)
}
