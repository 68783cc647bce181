package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordTransformRun(t *testing.T) {
	before := testutil.ToFloat64(TransformRunsTotal.WithLabelValues("SUCCESS"))
	rowsOutBefore := testutil.ToFloat64(TransformRowsOut)

	RecordTransformRun("SUCCESS", 4, 2, 0.25)

	assert.Equal(t, before+1, testutil.ToFloat64(TransformRunsTotal.WithLabelValues("SUCCESS")))
	assert.Equal(t, rowsOutBefore+2, testutil.ToFloat64(TransformRowsOut))
}

func TestRecordIngestion(t *testing.T) {
	storedBefore := testutil.ToFloat64(IngestedRecordsTotal.WithLabelValues("stored"))
	dupBefore := testutil.ToFloat64(IngestedRecordsTotal.WithLabelValues("duplicate"))
	relBefore := testutil.ToFloat64(DerivedRelationshipsTotal)

	RecordIngestion(5, 3, 7)

	assert.Equal(t, storedBefore+3, testutil.ToFloat64(IngestedRecordsTotal.WithLabelValues("stored")))
	assert.Equal(t, dupBefore+2, testutil.ToFloat64(IngestedRecordsTotal.WithLabelValues("duplicate")))
	assert.Equal(t, relBefore+7, testutil.ToFloat64(DerivedRelationshipsTotal))
}
