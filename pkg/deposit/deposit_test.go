package deposit_test

import (
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearsocial/bos_sdk_go/pkg/deposit"
	"github.com/nearsocial/bos_sdk_go/pkg/document"
)

var payloads = []string{
	`"Alice"`,
	`""`,
	`{"name":"Alice","tags":{"dev":"","near":""}}`,
	`[1,2,3,{"x":null}]`,
	`  {  "spaced" :   "value"  }  `,
	`12345678901234567890`,
	`{"widget":{"Feed":{"":"<div/>","metadata":{"title":"T"}}}}`,
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func TestSizeUsesCompactEncoding(t *testing.T) {
	assert.Equal(t, int64(7), deposit.Size(raw(`"Alice"`)))
	assert.Equal(t, int64(len(`{"spaced":"value"}`)), deposit.Size(raw(`  {  "spaced" :   "value"  }  `)))
	assert.Equal(t, int64(0), deposit.Size(nil))
}

func TestRequiredDepositZeroWhenNotGrowing(t *testing.T) {
	price := big.NewInt(1_000)
	for _, existing := range payloads {
		for _, next := range payloads {
			if deposit.Size(raw(next)) > deposit.Size(raw(existing)) {
				continue
			}
			got := deposit.RequiredDeposit(raw(existing), raw(next), price, nil)
			assert.Zero(t, got.Sign(), "existing=%s next=%s", existing, next)
		}
	}
}

func TestRequiredDepositMonotonicInDelta(t *testing.T) {
	price := deposit.StorageCostPerByte
	prev := new(big.Int)
	for n := 0; n < 64; n++ {
		next := raw(`"` + strings.Repeat("x", n) + `"`)
		got := deposit.RequiredDeposit(nil, next, price, nil)
		require.GreaterOrEqual(t, got.Cmp(prev), 0, "length %d", n)
		prev = got
	}
}

func TestRequiredDepositSubtractsAlreadyPaid(t *testing.T) {
	price := big.NewInt(2)
	got := deposit.RequiredDeposit(nil, raw(`"Alice"`), price, big.NewInt(4))
	assert.Equal(t, int64(10), got.Int64())

	got = deposit.RequiredDeposit(nil, raw(`"Alice"`), price, big.NewInt(100))
	assert.Zero(t, got.Sign())
}

func TestQuoteThenReconcileAliceScenario(t *testing.T) {
	engine := deposit.NewEngine(deposit.DefaultPolicy())
	price := big.NewInt(1)

	q, err := engine.Quote(nil, raw(`"Alice"`), price)
	require.NoError(t, err)
	assert.Equal(t, int64(7), q.DeltaBytes)
	assert.Equal(t, int64(7), q.Required.Int64())

	covered, err := engine.Reconcile(q, &deposit.Balance{Registered: true, Available: big.NewInt(7)}, price)
	require.NoError(t, err)
	assert.True(t, covered.Covered)
	assert.Zero(t, covered.Attached.Sign())

	short, err := engine.Reconcile(q, &deposit.Balance{Registered: true, Available: big.NewInt(3)}, price)
	require.NoError(t, err)
	assert.False(t, short.Covered)
	assert.Equal(t, int64(4), short.Attached.Int64())
}

func TestReconcileReprices(t *testing.T) {
	engine := deposit.NewEngine(deposit.DefaultPolicy())
	q, err := engine.Quote(raw(`"Al"`), raw(`"Alice"`), big.NewInt(10))
	require.NoError(t, err)
	assert.Equal(t, int64(3), q.DeltaBytes)
	assert.Equal(t, int64(30), q.Required.Int64())

	s, err := engine.Reconcile(q, &deposit.Balance{Registered: true, Available: big.NewInt(5)}, big.NewInt(20))
	require.NoError(t, err)
	assert.Equal(t, int64(60), s.Required.Int64())
	assert.Equal(t, int64(55), s.Attached.Int64())

	kept, err := engine.Reconcile(q, &deposit.Balance{Registered: true, Available: big.NewInt(0)}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(30), kept.Attached.Int64())
}

func TestReconcileFloorAndCeiling(t *testing.T) {
	policy := deposit.DefaultPolicy()
	policy.Floor = big.NewInt(1)
	policy.Ceiling = big.NewInt(50)
	engine := deposit.NewEngine(policy)

	q, err := engine.Quote(raw(`"long value"`), raw(`"short"`), big.NewInt(1))
	require.NoError(t, err)
	s, err := engine.Reconcile(q, &deposit.Balance{Registered: true, Available: big.NewInt(0)}, nil)
	require.NoError(t, err)
	assert.True(t, s.Covered)
	assert.Equal(t, int64(1), s.Attached.Int64())

	_, err = engine.Quote(nil, raw(`"`+strings.Repeat("x", 100)+`"`), big.NewInt(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, deposit.ErrDepositShortfall)
	var ceiling *deposit.CeilingError
	require.True(t, errors.As(err, &ceiling))
	assert.Equal(t, int64(102), ceiling.Required.Int64())

	q, err = engine.Quote(nil, raw(`"`+strings.Repeat("x", 20)+`"`), big.NewInt(1))
	require.NoError(t, err)
	_, err = engine.Reconcile(q, nil, big.NewInt(3))
	assert.ErrorIs(t, err, deposit.ErrDepositShortfall)
}

func TestReconcileRegistration(t *testing.T) {
	policy := deposit.DefaultPolicy()
	policy.RegistrationBytes = 100
	policy.MinRegistration = big.NewInt(500)
	engine := deposit.NewEngine(policy)

	q, err := engine.Quote(nil, raw(`"Alice"`), big.NewInt(1))
	require.NoError(t, err)

	s, err := engine.Reconcile(q, nil, nil)
	require.NoError(t, err)
	assert.True(t, s.Registration)
	assert.Equal(t, int64(107), s.Required.Int64())
	assert.Equal(t, int64(500), s.Attached.Int64())

	s, err = engine.Reconcile(q, &deposit.Balance{Registered: true, Available: big.NewInt(0)}, nil)
	require.NoError(t, err)
	assert.False(t, s.Registration)
	assert.Equal(t, int64(7), s.Attached.Int64())
}

func TestLeafDeltasIgnoreKeys(t *testing.T) {
	stored, err := document.Parse([]byte(`{"alice.near":{"widget":{"Feed":"old","Menu":{"":"<m/>"}}}}`))
	require.NoError(t, err)
	data, err := document.Parse([]byte(`{"alice.near":{"widget":{"Feed":"older","LongWidgetName":"x"}},"bob.near":{"profile":{"name":"Bob"}}}`))
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"alice.near": 2 + 3, "bob.near": 5}, deposit.LeafDeltas(stored, data))
	assert.Equal(t, int64(10), deposit.WireEstimator{}.WriteDelta(stored, data))

	shrink, err := document.Parse([]byte(`{"alice.near":{"widget":{"Feed":"o"}}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(-2), deposit.LeafDeltas(stored, shrink)["alice.near"])
	assert.Zero(t, deposit.WireEstimator{}.WriteDelta(stored, shrink))
}

func TestQuoteWriteUsesLeafSizes(t *testing.T) {
	engine := deposit.NewEngine(deposit.DefaultPolicy())
	data, err := document.Build(document.Path{"alice.near", "profile"}, raw(`{"name":"Alice","tags":{"dev":""}}`))
	require.NoError(t, err)

	q, err := engine.QuoteWrite(nil, data, big.NewInt(2))
	require.NoError(t, err)
	assert.Equal(t, int64(9), q.DeltaBytes)
	assert.Equal(t, int64(18), q.Required.Int64())

	_, err = engine.QuoteWrite(nil, data, nil)
	assert.ErrorIs(t, err, deposit.ErrInvalidAmount)
}

func TestQuoteRejectsNegativePrice(t *testing.T) {
	engine := deposit.NewEngine(deposit.Policy{})
	_, err := engine.Quote(nil, raw(`1`), big.NewInt(-1))
	assert.ErrorIs(t, err, deposit.ErrInvalidAmount)
	_, err = engine.Quote(nil, raw(`1`), nil)
	assert.ErrorIs(t, err, deposit.ErrInvalidAmount)
}

func TestSocialEstimator(t *testing.T) {
	est := deposit.SocialEstimator{}
	next := raw(`{"alice.near":{"profile":{"name":"Alice"}}}`)

	assert.Equal(t, int64(764), est.DeltaBytes(nil, next))
	assert.Equal(t, int64(6), est.DeltaBytes(raw(`{"alice.near":{"profile":{"name":"Al"}}}`), next))
	assert.Equal(t, int64(3), est.DeltaBytes(next, raw(`{"alice.near":{"profile":{"name":"A"}}}`)))
	assert.Equal(t, int64(0), est.DeltaBytes(raw(`{"alice.near":{"profile":{"name":"Alexandria"}}}`), next))
}

func TestSocialDBPolicyAddsHeadroom(t *testing.T) {
	engine := deposit.NewEngine(deposit.SocialDBPolicy())
	q, err := engine.Quote(raw(`{"a":{"b":"Al"}}`), raw(`{"a":{"b":"Alice"}}`), deposit.StorageCostPerByte)
	require.NoError(t, err)
	assert.Equal(t, int64(6), q.DeltaBytes)

	want := new(big.Int).Mul(big.NewInt(5006), deposit.StorageCostPerByte)
	assert.Zero(t, q.Required.Cmp(want))

	s, err := engine.Reconcile(q, &deposit.Balance{Registered: true, Available: deposit.OneNEAR}, nil)
	require.NoError(t, err)
	assert.True(t, s.Covered)
	assert.Zero(t, s.Attached.Sign())
}

func TestParseAndFormatAmounts(t *testing.T) {
	v, err := deposit.ParseAmount("1000")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), v.Int64())

	v, err = deposit.ParseAmount("0.5 NEAR")
	require.NoError(t, err)
	assert.Equal(t, "500000000000000000000000", v.String())
	assert.Equal(t, "0.5 NEAR", deposit.FormatNEAR(v))

	v, err = deposit.ParseAmount("2NEAR")
	require.NoError(t, err)
	assert.Equal(t, "2 NEAR", deposit.FormatNEAR(v))
	assert.Equal(t, "0.000000000000000000000007 NEAR", deposit.FormatNEAR(big.NewInt(7)))

	for _, bad := range []string{"", "-1", "abc", "1.2.3 NEAR", "0.0000000000000000000000001 NEAR"} {
		_, err := deposit.ParseAmount(bad)
		assert.ErrorIs(t, err, deposit.ErrInvalidAmount, "input %q", bad)
	}
}
