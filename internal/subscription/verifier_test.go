package subscription

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifyEchoesChallenge(t *testing.T) {
	v := NewVerifier("s3cret")

	challenge, err := v.Verify("subscribe", "s3cret", "15f7d1a91c1f40f8a748fd134752feb3")
	require.NoError(t, err)
	require.Equal(t, "15f7d1a91c1f40f8a748fd134752feb3", challenge)
}

func TestVerifyRejects(t *testing.T) {
	cases := map[string]struct {
		configured string
		mode       string
		token      string
	}{
		"wrong token":       {configured: "s3cret", mode: "subscribe", token: "guess"},
		"wrong mode":        {configured: "s3cret", mode: "unsubscribe", token: "s3cret"},
		"missing mode":      {configured: "s3cret", token: "s3cret"},
		"unconfigured":      {configured: "", mode: "subscribe", token: ""},
		"token prefix only": {configured: "s3cret", mode: "subscribe", token: "s3c"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewVerifier(tc.configured).Verify(tc.mode, tc.token, "abc")
			require.ErrorIs(t, err, ErrForbidden)
		})
	}
}
