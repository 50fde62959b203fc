package flowens

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"

	localcache "github.com/flow-platform/flowens/cache"
	"github.com/flow-platform/flowens/config"
	"github.com/flow-platform/flowens/registrar"
	"github.com/flow-platform/flowens/schema"
)

// Registrar is the ledger capability: the ETHRegistrarController surface
// this service drives. registrar.Client is the production implementation.
type Registrar interface {
	Available(ctx context.Context, label string) (bool, error)
	RentPrice(ctx context.Context, label string, durationSec int64) (base, premium *big.Int, err error)
	MinCommitmentAge(ctx context.Context) (time.Duration, error)
	MaxCommitmentAge(ctx context.Context) (time.Duration, error)
	Commit(ctx context.Context, id registrar.Identity, commitment common.Hash) (string, error)
	Register(ctx context.Context, id registrar.Identity, reg schema.Registration, payment *big.Int) (string, error)
	Renew(ctx context.Context, id registrar.Identity, label string, durationSec int64, payment *big.Int) (string, error)
	BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

type FlowEns struct {
	store  *Store
	engine *gin.Engine

	reg      Registrar
	identity registrar.Identity
	resolver common.Address

	attemptMg *AttemptManager
	scheduler *gocron.Scheduler

	cache      *Cache
	localCache *localcache.Cache
	config     *config.Config
	wdb        *Wdb

	intent  *IntentService
	kwriter map[string]*KWriter // empty when events disabled

	now func() time.Time
}

func New(
	boltDirPath, mySqlDsn string, sqliteDir string, useSqlite bool,
	keyPath string, rpcUrl string, chainID int64,
	useS3 bool, s3AccKey, s3SecretKey, s3BucketPrefix, s3Region, s3Endpoint string,
	kafkaUri string, enableKafka bool,
	llmUrls []string, llmApiKey, llmModel string,
) *FlowEns {
	var err error
	KVDb := &Store{}
	if useS3 {
		KVDb, err = NewS3Store(s3AccKey, s3SecretKey, s3Region, s3BucketPrefix, s3Endpoint)
	} else {
		KVDb, err = NewBoltStore(boltDirPath)
	}
	if err != nil {
		panic(err)
	}

	wdb := &Wdb{}
	configDsn := mySqlDsn
	if useSqlite {
		wdb = NewSqliteDb(sqliteDir)
		configDsn = sqliteDir + "/config.sqlite"
	} else {
		wdb = NewMysqlDb(mySqlDsn)
	}
	if err = wdb.Migrate(); err != nil {
		panic(err)
	}

	network, ok := config.NetworkFor(chainID)
	if !ok {
		network, _ = config.NetworkFor(config.DefaultChainID)
	}
	if rpcUrl == "" {
		rpcUrl = network.RpcUrl
	}
	regCli, err := registrar.New(rpcUrl, common.HexToAddress(network.Controller), network.ChainID)
	if err != nil {
		panic(err)
	}
	identity, err := registrar.NewEcdsaIdentityFromPath(keyPath)
	if err != nil {
		panic(err)
	}

	localCache, err := localcache.NewLocalCache(30 * time.Second)
	if err != nil {
		panic(err)
	}

	kwriter := make(map[string]*KWriter)
	if enableKafka {
		kwriter, err = NewKWriters(kafkaUri)
		if err != nil {
			panic(err)
		}
	}

	completers := make([]TextCompleter, 0, len(llmUrls))
	for _, u := range llmUrls {
		completers = append(completers, NewHTTPCompleter(u, llmApiKey, llmModel))
	}

	s := &FlowEns{
		store:      KVDb,
		engine:     gin.Default(),
		reg:        regCli,
		identity:   identity,
		resolver:   common.HexToAddress(network.Resolver),
		attemptMg:  NewAttemptManager(),
		scheduler:  gocron.NewScheduler(time.UTC),
		cache:      NewCache(),
		localCache: localCache,
		config:     config.New(configDsn, useSqlite),
		wdb:        wdb,
		intent:     NewIntentService(NewFallbackCompleter(completers...)),
		kwriter:    kwriter,
		now:        time.Now,
	}

	// the controller's commitment ages are authoritative. Seed from the last
	// persisted values, then refresh from the chain before serving.
	if minSec, maxSec, err := s.store.LoadCommitmentAges(); err == nil {
		s.cache.UpdateCommitmentAges(time.Duration(minSec)*time.Second, time.Duration(maxSec)*time.Second)
	}
	s.updateCommitmentAges()
	return s
}

func (s *FlowEns) Run(port string) {
	s.config.Run()
	go s.runAPI(port)
	go s.runJobs()
}

func (s *FlowEns) Close() {
	s.scheduler.Stop()
	s.config.Close()
	s.wdb.Close()
	if err := s.store.Close(); err != nil {
		log.Error("s.store.Close()", "err", err)
	}
	for _, kw := range s.kwriter {
		kw.Close()
	}
}
