package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/keysearch-cli/internal/model"
	"github.com/sells-group/keysearch-cli/pkg/oracle"
)

// scriptedOracle returns a scripted response per submission, keyed by
// fingerprint and attempt number (1 or 2).
type scriptedOracle struct {
	responses map[string][]*oracle.Response // nil entry = no response (error)
	calls     []string
}

func (s *scriptedOracle) Submit(_ context.Context, checksum string) (*oracle.Response, error) {
	s.calls = append(s.calls, checksum)

	script, ok := s.responses[checksum]
	if !ok || len(script) == 0 {
		return nil, errors.New("oracle: request failed")
	}
	resp := script[0]
	s.responses[checksum] = script[1:]
	if resp == nil {
		return nil, errors.New("oracle: request failed")
	}
	return resp, nil
}

// memLedger is an in-memory Ledger for engine tests.
type memLedger struct {
	processed []model.Fingerprint
	failed    []model.Fingerprint
	err       error
}

func (m *memLedger) AddProcessed(fp model.Fingerprint) error {
	if m.err != nil {
		return m.err
	}
	m.processed = append(m.processed, fp)
	return nil
}

func (m *memLedger) AddFailed(fp model.Fingerprint) error {
	if m.err != nil {
		return m.err
	}
	m.failed = append(m.failed, fp)
	return nil
}

// memSink captures persisted matches.
type memSink struct {
	matches []model.VerifiedMatch
	err     error
}

func (m *memSink) Persist(match model.VerifiedMatch) error {
	if m.err != nil {
		return m.err
	}
	m.matches = append(m.matches, match)
	return nil
}

func resp(key string) *oracle.Response {
	return &oracle.Response{Key: key}
}

func TestRun_MatchHaltsBeforeRemainingCandidates(t *testing.T) {
	orc := &scriptedOracle{responses: map[string][]*oracle.Response{
		"a1": {resp(""), resp("")},
		"a2": {resp("K"), resp("K")},
		"a3": {resp("K"), resp("K")},
	}}
	ledger := &memLedger{}
	sink := &memSink{}

	engine := New(orc, ledger, sink)
	summary, err := engine.Run(context.Background(), []model.Fingerprint{"a1", "a2", "a3"})
	require.NoError(t, err)

	require.NotNil(t, summary.Match)
	assert.Equal(t, model.Fingerprint("a2"), summary.Match.Fingerprint)
	assert.Equal(t, "K", summary.Match.Key)

	// a1 mismatched, a2 matched, a3 never submitted.
	assert.Equal(t, []model.Fingerprint{"a1"}, ledger.processed)
	assert.Empty(t, ledger.failed)
	assert.Equal(t, []string{"a1", "a1", "a2", "a2"}, orc.calls)

	require.Len(t, sink.matches, 1)
	assert.Equal(t, "K", sink.matches[0].Key)
}

func TestRun_FirstSubmissionFailureSkipsSecond(t *testing.T) {
	orc := &scriptedOracle{responses: map[string][]*oracle.Response{
		"x1": {nil},
		"x2": {resp(""), resp("")},
	}}
	ledger := &memLedger{}
	sink := &memSink{}

	engine := New(orc, ledger, sink)
	summary, err := engine.Run(context.Background(), []model.Fingerprint{"x1", "x2"})
	require.NoError(t, err)

	assert.Nil(t, summary.Match)
	assert.Equal(t, []model.Fingerprint{"x1"}, ledger.failed)
	assert.Equal(t, []model.Fingerprint{"x2"}, ledger.processed)

	// x1 submitted exactly once, then the run moved on.
	assert.Equal(t, []string{"x1", "x2", "x2"}, orc.calls)
}

func TestRun_SecondSubmissionFailureIsFailed(t *testing.T) {
	orc := &scriptedOracle{responses: map[string][]*oracle.Response{
		"x1": {resp("K"), nil},
	}}
	ledger := &memLedger{}
	sink := &memSink{}

	engine := New(orc, ledger, sink)
	summary, err := engine.Run(context.Background(), []model.Fingerprint{"x1"})
	require.NoError(t, err)

	assert.Nil(t, summary.Match)
	assert.Equal(t, []model.Fingerprint{"x1"}, ledger.failed)
	assert.Empty(t, ledger.processed)
}

func TestRun_DisagreeingKeysAreMismatch(t *testing.T) {
	orc := &scriptedOracle{responses: map[string][]*oracle.Response{
		"a1": {resp("K1"), resp("K2")},
	}}
	ledger := &memLedger{}
	sink := &memSink{}

	engine := New(orc, ledger, sink)
	summary, err := engine.Run(context.Background(), []model.Fingerprint{"a1"})
	require.NoError(t, err)

	assert.Nil(t, summary.Match)
	assert.Equal(t, []model.Fingerprint{"a1"}, ledger.processed)
	assert.Empty(t, sink.matches)
}

func TestRun_EmptyKeysNeverMatch(t *testing.T) {
	// Two agreeing empty keys must not count as a match.
	orc := &scriptedOracle{responses: map[string][]*oracle.Response{
		"a1": {resp(""), resp("")},
	}}
	ledger := &memLedger{}
	sink := &memSink{}

	engine := New(orc, ledger, sink)
	summary, err := engine.Run(context.Background(), []model.Fingerprint{"a1"})
	require.NoError(t, err)

	assert.Nil(t, summary.Match)
	assert.Equal(t, []model.Fingerprint{"a1"}, ledger.processed)
}

func TestRun_EveryCandidateLandsInExactlyOneSet(t *testing.T) {
	orc := &scriptedOracle{responses: map[string][]*oracle.Response{
		"a1": {resp(""), resp("")},
		"a2": {nil},
		"a3": {resp("K1"), resp("K2")},
		"a4": {resp("K"), nil},
	}}
	ledger := &memLedger{}
	sink := &memSink{}

	engine := New(orc, ledger, sink)
	summary, err := engine.Run(context.Background(), []model.Fingerprint{"a1", "a2", "a3", "a4"})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 2, summary.Failed)
	assert.ElementsMatch(t, []model.Fingerprint{"a1", "a3"}, ledger.processed)
	assert.ElementsMatch(t, []model.Fingerprint{"a2", "a4"}, ledger.failed)
}

func TestRun_ZeroCandidates(t *testing.T) {
	orc := &scriptedOracle{responses: map[string][]*oracle.Response{}}
	ledger := &memLedger{}
	sink := &memSink{}

	engine := New(orc, ledger, sink)
	summary, err := engine.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Zero(t, summary.Total)
	assert.Nil(t, summary.Match)
	assert.Empty(t, orc.calls)
	assert.Empty(t, ledger.processed)
	assert.Empty(t, ledger.failed)
}

func TestRun_ProgressReportedPerTerminalOutcome(t *testing.T) {
	orc := &scriptedOracle{responses: map[string][]*oracle.Response{
		"a1": {resp(""), resp("")},
		"a2": {nil},
		"a3": {resp("K"), resp("K")},
	}}
	ledger := &memLedger{}
	sink := &memSink{}

	var progress [][2]int
	engine := New(orc, ledger, sink, WithObserver(ObserverFunc(func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})))

	_, err := engine.Run(context.Background(), []model.Fingerprint{"a1", "a2", "a3"})
	require.NoError(t, err)

	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)
}

func TestRun_LedgerFailureAborts(t *testing.T) {
	orc := &scriptedOracle{responses: map[string][]*oracle.Response{
		"a1": {resp(""), resp("")},
	}}
	ledger := &memLedger{err: errors.New("disk full")}
	sink := &memSink{}

	engine := New(orc, ledger, sink)
	_, err := engine.Run(context.Background(), []model.Fingerprint{"a1"})
	require.Error(t, err)
}

func TestRun_SinkFailureAborts(t *testing.T) {
	orc := &scriptedOracle{responses: map[string][]*oracle.Response{
		"a1": {resp("K"), resp("K")},
	}}
	ledger := &memLedger{}
	sink := &memSink{err: errors.New("disk full")}

	engine := New(orc, ledger, sink)
	_, err := engine.Run(context.Background(), []model.Fingerprint{"a1"})
	require.Error(t, err)
}

func TestRun_CancelledBeforeNextCandidate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	orc := &scriptedOracle{responses: map[string][]*oracle.Response{
		"a1": {resp(""), resp("")},
	}}
	ledger := &memLedger{}
	sink := &memSink{}

	engine := New(orc, ledger, sink, WithObserver(ObserverFunc(func(done, total int) {
		cancel() // cancel after the first terminal outcome
	})))

	summary, err := engine.Run(ctx, []model.Fingerprint{"a1", "a2"})
	require.Error(t, err)

	// a1 completed and was checkpointed; a2 was never submitted.
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, []string{"a1", "a1"}, orc.calls)
}
