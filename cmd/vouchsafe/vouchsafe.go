package main

import (
	"errors"
	"flag"
	"math/big"
	"path/filepath"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"

	"github.com/vouchsafe/go-vouchsafe/claim"
	"github.com/vouchsafe/go-vouchsafe/common"
	"github.com/vouchsafe/go-vouchsafe/eth"
	"github.com/vouchsafe/go-vouchsafe/server"
)

func main() {
	datadir := flag.String("datadir", "", "Data directory for the node database (in-memory state if empty)")
	httpAddr := flag.String("httpAddr", "127.0.0.1:8935", "Address to bind the HTTP surface to")
	chainID := flag.Int64("chainID", 31337, "Network identifier vouchers must be bound to")
	pauser := flag.String("pauser", "", "Account seeded with the PAUSE capability")
	upgrader := flag.String("upgrader", "", "Account seeded with the UPGRADE capability")
	admin := flag.String("admin", "", "Account seeded with the ADMIN capability")
	token := flag.String("token", "", "Initial reward token address")
	pool := flag.String("pool", "", "Pool account holding the claimable balance")
	poolBalance := flag.String("poolBalance", "0", "Initial pooled balance of the reward token")

	flag.Parse()

	pauserAddr := parseAddr("pauser", *pauser)
	upgraderAddr := parseAddr("upgrader", *upgrader)
	adminAddr := parseAddr("admin", *admin)
	tokenAddr := parseAddr("token", *token)
	poolAddr := parseAddr("pool", *pool)

	chain := big.NewInt(*chainID)

	var store claim.Store
	var db *common.DB
	var roles *claim.RoleRegistry

	if *datadir != "" {
		var err error
		db, err = common.InitDB(filepath.Join(*datadir, "vouchsafe.sqlite3"))
		if err != nil {
			glog.Fatalf("error opening database: %v", err)
		}
		defer db.Close()

		err = db.Initialize(pauserAddr, upgraderAddr, adminAddr, tokenAddr, chain)
		if err != nil && !errors.Is(err, claim.ErrAlreadyInitialized) {
			glog.Fatalf("error initializing database: %v", err)
		}
		if errors.Is(err, claim.ErrAlreadyInitialized) {
			glog.Info("Using previously initialized data directory ", *datadir)

			dbChain, err := db.ChainID()
			if err != nil {
				glog.Fatalf("error reading chain id: %v", err)
			}
			if dbChain.Cmp(chain) != 0 {
				glog.Fatalf("data directory initialized for chain %v, got -chainID %v", dbChain, chain)
			}

			if tokenAddr, err = db.Token(); err != nil {
				glog.Fatalf("error reading reward token: %v", err)
			}
		}

		grants, err := db.LoadRoles()
		if err != nil {
			glog.Fatalf("error loading roles: %v", err)
		}
		roles = claim.NewRoleRegistryFromGrants(grants)
		store = db
	} else {
		var err error
		// NewRoleRegistry rejects zero-address seeds; the db path enforces
		// the same rule in Initialize
		roles, err = claim.NewRoleRegistry(pauserAddr, upgraderAddr, adminAddr)
		if err != nil {
			glog.Fatalf("error seeding roles: %v", err)
		}
		store = claim.NewMemoryStore()
	}

	ledger := eth.NewInMemoryLedger(poolAddr)
	balance, err := common.ParseBigInt(*poolBalance)
	if err != nil {
		glog.Fatalf("invalid -poolBalance: %v", err)
	}
	ledger.Fund(tokenAddr, balance)

	// The store journals events durably in the mutation path; the feed only
	// serves in-process subscribers
	feed := claim.NewEventFeed()

	service, err := claim.NewService(roles, claim.NewGate(roles), claim.NewVerifier(chain), store, ledger, feed, chain, tokenAddr)
	if err != nil {
		glog.Fatalf("error creating claim service: %v", err)
	}

	glog.Infof("Starting vouchsafe node chainID=%v token=%v pool=%v poolBalance=%v", chain, tokenAddr.Hex(), poolAddr.Hex(), balance)
	server.StartWebserver(*httpAddr, service, db)
}

func parseAddr(name, value string) ethcommon.Address {
	if !ethcommon.IsHexAddress(value) {
		glog.Fatalf("invalid -%s address %q", name, value)
	}

	return ethcommon.HexToAddress(value)
}
