package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"time"

	"github.com/dreamware/starlane/internal/address"
	"github.com/dreamware/starlane/internal/certutil"
	"github.com/dreamware/starlane/internal/config"
	"github.com/dreamware/starlane/internal/driver"
	"github.com/dreamware/starlane/internal/hyperway"
	"github.com/dreamware/starlane/internal/logging"
	"github.com/dreamware/starlane/internal/registry"
	"github.com/dreamware/starlane/internal/star"
	"github.com/dreamware/starlane/internal/topology"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// node bundles every component a running star shares with its lane
// and admin goroutines.
type node struct {
	cfg         *config.Config
	log         *logrus.Entry
	self        address.StarKey
	store       registry.Store
	adjacency   *topology.Adjacency
	cache       *topology.GoldenPathCache
	interchange *hyperway.Interchange
	drivers     *driver.Registry
	star        *star.Star
	tlsServer   *tls.Config
	tlsClient   *tls.Config
}

func buildNode(ctx context.Context, cfg *config.Config) (*node, error) {
	log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	self := address.NewStarKey(cfg.Star.Constellation, cfg.Star.Name, cfg.Star.Index)

	store, err := openRegistry(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("star: open registry: %w", err)
	}

	tlsServer, tlsClient, err := buildTLS(cfg.Lane.CertDir, self)
	if err != nil {
		return nil, fmt.Errorf("star: tls: %w", err)
	}

	adjacency := topology.NewAdjacency()
	cache := topology.NewGoldenPathCache()
	interchange := hyperway.NewInterchange(logging.ForComponent(log, "interchange"))
	drivers := driver.NewRegistry()

	starCfg := star.Config{
		Self:            self,
		Kind:            cfg.Star.Kind,
		IsForwarder:     cfg.Star.IsForwarder,
		WrangleKinds:    cfg.Topology.WrangleKinds,
		WrangleInterval: cfg.Topology.WrangleInterval,
	}
	s := star.New(starCfg, store, adjacency, cache, interchange, drivers, nil, star.PlanForKind, nil, nil, logging.ForComponent(log, "star"))

	return &node{
		cfg:         cfg,
		log:         log,
		self:        self,
		store:       store,
		adjacency:   adjacency,
		cache:       cache,
		interchange: interchange,
		drivers:     drivers,
		star:        s,
		tlsServer:   tlsServer,
		tlsClient:   tlsClient,
	}, nil
}

func openRegistry(ctx context.Context, cfg *config.Config) (registry.Store, error) {
	if cfg.Registry.InMemory {
		return registry.NewMemory(), nil
	}
	if cfg.Registry.Migrate {
		if err := registry.Migrate(cfg.Registry.DSN); err != nil {
			return nil, err
		}
	}
	pool, err := pgxpool.New(ctx, cfg.Registry.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return registry.NewPostgres(pool), nil
}

// buildTLS ensures dir holds a self-signed certificate (one is
// generated on first run if absent) and returns the server and client
// TLS configurations lanes use. A constellation's stars share one
// cert/key pair, copied out of band into every star's CertDir; each
// star both presents and trusts only that certificate, closing the
// mesh to anything that wasn't handed the file.
func buildTLS(dir string, self address.StarKey) (server, client *tls.Config, err error) {
	if _, statErr := os.Stat(dir + "/" + certutil.CertFileName); os.IsNotExist(statErr) {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
		sans := []string{self.String(), "localhost", "127.0.0.1"}
		if err := certutil.GenerateSelfSigned(dir, sans, 365*24*time.Hour); err != nil {
			return nil, nil, fmt.Errorf("generate cert: %w", err)
		}
	}

	cert, err := certutil.LoadTLSCertificate(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("load cert: %w", err)
	}
	pool, err := certutil.TrustPool(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("trust pool: %w", err)
	}

	server = &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    pool,
	}
	client = &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		ServerName:   "localhost",
	}
	return server, client, nil
}
