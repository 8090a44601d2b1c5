package hyperway

import (
	"context"
	"crypto/tls"
	"testing"
	"time"

	"github.com/dreamware/starlane/internal/address"
	"github.com/dreamware/starlane/internal/certutil"
	"github.com/dreamware/starlane/internal/lane"
	"github.com/dreamware/starlane/internal/wave"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialedLanePair(t *testing.T) (client, server *lane.Lane) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, certutil.GenerateSelfSigned(dir, []string{"127.0.0.1"}, time.Hour))
	serverCert, err := certutil.LoadTLSCertificate(dir)
	require.NoError(t, err)

	ln, err := lane.Listen("127.0.0.1:0", &tls.Config{Certificates: []tls.Certificate{serverCert}}, "1.0.0", nil)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	pool, err := certutil.TrustPool(dir)
	require.NoError(t, err)

	serverCh := make(chan *lane.Lane, 1)
	go func() {
		l, err := ln.Accept()
		require.NoError(t, err)
		serverCh <- l
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	clientLane, err := lane.Dial(ctx, ln.Addr().String(), &tls.Config{RootCAs: pool}, "1.0.0", nil)
	require.NoError(t, err)
	serverLane := <-serverCh

	go clientLane.Run(context.Background())
	go serverLane.Run(context.Background())
	return clientLane, serverLane
}

func TestGateAdmitsValidKnock(t *testing.T) {
	clientLane, serverLane := dialedLanePair(t)
	defer clientLane.Terminate()
	defer serverLane.Terminate()

	ic := NewInterchange(nil)
	auth := NewTokenAuthenticator()
	auth.Register("secret-token", "hyperspace:users:less")
	greeter := StarGreeter{StarPoint: address.MustParsePoint("STAR:prime:alpha-0")}
	gate := NewGate(ic, auth, greeter, IdentityConfigurator{}, nil)

	admitted := make(chan error, 1)
	go func() {
		_, _, err := gate.Admit(context.Background(), serverLane, false)
		admitted <- err
	}()

	knock := wave.Knock{Credentials: []byte("secret-token"), PointPattern: "space:app:less"}
	from := address.NewSurface(address.MustParsePoint("space:app:less"), address.LayerGravity)
	knockWave := wave.NewSignal(from, from, "Knock", knock.ToSubstance())
	clientLane.Outbound() <- knockWave

	select {
	case err := <-admitted:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for gate to admit")
	}

	_, found := ic.LookupByPoint("space:app:less")
	assert.True(t, found)
}

func TestGateRejectsNonKnockFirstWave(t *testing.T) {
	clientLane, serverLane := dialedLanePair(t)
	defer clientLane.Terminate()
	defer serverLane.Terminate()

	ic := NewInterchange(nil)
	auth := NewTokenAuthenticator()
	greeter := StarGreeter{StarPoint: address.MustParsePoint("STAR:prime:alpha-0")}
	gate := NewGate(ic, auth, greeter, IdentityConfigurator{}, nil)

	admitted := make(chan error, 1)
	go func() {
		_, _, err := gate.Admit(context.Background(), serverLane, false)
		admitted <- err
	}()

	from := address.NewSurface(address.MustParsePoint("space:app:less"), address.LayerGravity)
	notAKnock := wave.NewSignal(from, from, "Chat", wave.Text("hi"))
	clientLane.Outbound() <- notAKnock

	select {
	case err := <-admitted:
		assert.ErrorIs(t, err, wave.ErrAuthFailed)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for gate rejection")
	}
}
