package resharing

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/share-recovery-backend/cryptoutils"
	"github.com/ruteri/share-recovery-backend/interfaces"
)

type testCustodian struct {
	record  interfaces.CustodianRecord
	privPEM string
}

func makeCustodians(t *testing.T, n int) []testCustodian {
	t.Helper()
	custodians := make([]testCustodian, n)
	for i := range custodians {
		privPEM, pubPEM, err := cryptoutils.GenerateCustodianKeyPair()
		require.NoError(t, err)
		custodians[i] = testCustodian{
			record: interfaces.CustodianRecord{
				ID:     cryptoutils.ComputeFingerprint([]byte(pubPEM)),
				PubKey: pubPEM,
			},
			privPEM: privPEM,
		}
	}
	return custodians
}

func records(custodians []testCustodian) []interfaces.CustodianRecord {
	out := make([]interfaces.CustodianRecord, len(custodians))
	for i, c := range custodians {
		out[i] = c.record
	}
	return out
}

func TestReissueCombine_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		secret *big.Int
	}{
		{name: "small positive", secret: big.NewInt(1)},
		{name: "negative", secret: big.NewInt(-987654321)},
		{name: "zero", secret: big.NewInt(0)},
		{name: "large", secret: new(big.Int).Exp(big.NewInt(10), big.NewInt(100), nil)},
	}

	custodians := makeCustodians(t, 5)
	const threshold = 3

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reissued, err := Reissue(tt.secret, records(custodians), threshold)
			require.NoError(t, err)
			require.Len(t, reissued, len(custodians))

			// Each custodian decrypts their own share.
			parts := make([][]byte, len(custodians))
			for i, share := range reissued {
				assert.Equal(t, custodians[i].record.ID, share.CustodianID)
				assert.Equal(t, i, share.ShareIndex)

				part, err := cryptoutils.DecryptWithPrivateKey([]byte(custodians[i].privPEM), share.EncryptedShare)
				require.NoError(t, err)
				parts[i] = part
			}

			// Any threshold-sized subset reconstructs the secret.
			subsets := [][]int{{0, 1, 2}, {0, 2, 4}, {1, 3, 4}, {2, 3, 4}}
			for _, subset := range subsets {
				chosen := make([][]byte, 0, threshold)
				for _, idx := range subset {
					chosen = append(chosen, parts[idx])
				}
				combined, err := CombineReissued(chosen)
				require.NoError(t, err)
				assert.Zero(t, tt.secret.Cmp(combined), "subset %v", subset)
			}

			// The full set works too.
			combined, err := CombineReissued(parts)
			require.NoError(t, err)
			assert.Zero(t, tt.secret.Cmp(combined))
		})
	}
}

func TestReissue_ShareConfidentiality(t *testing.T) {
	custodians := makeCustodians(t, 3)

	reissued, err := Reissue(big.NewInt(42), records(custodians), 2)
	require.NoError(t, err)

	// A custodian's key does not open another custodian's share.
	_, err = cryptoutils.DecryptWithPrivateKey([]byte(custodians[1].privPEM), reissued[0].EncryptedShare)
	assert.Error(t, err)
}

func TestReissue_Validation(t *testing.T) {
	custodians := records(makeCustodians(t, 3))

	tests := []struct {
		name       string
		secret     *big.Int
		custodians []interfaces.CustodianRecord
		threshold  int
	}{
		{name: "nil secret", secret: nil, custodians: custodians, threshold: 2},
		{name: "threshold below minimum", secret: big.NewInt(1), custodians: custodians, threshold: 1},
		{name: "threshold above count", secret: big.NewInt(1), custodians: custodians, threshold: 4},
		{name: "no custodians", secret: big.NewInt(1), custodians: nil, threshold: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reissue(tt.secret, tt.custodians, tt.threshold)
			assert.Error(t, err)
		})
	}
}

func TestReissue_BadCustodianKey(t *testing.T) {
	custodians := []interfaces.CustodianRecord{
		{ID: "c1", PubKey: "not a key"},
		{ID: "c2", PubKey: "not a key"},
	}
	_, err := Reissue(big.NewInt(1), custodians, 2)
	assert.Error(t, err)
}

func TestCombineReissued_Rejects(t *testing.T) {
	_, err := CombineReissued(nil)
	assert.Error(t, err)

	_, err = CombineReissued([][]byte{{1, 2, 3}})
	assert.Error(t, err)
}
