package flowens

import (
	"encoding/json"

	"github.com/flow-platform/flowens/rawdb"
	"github.com/flow-platform/flowens/schema"
)

type Store struct {
	KVDb rawdb.KeyValueDB
}

func NewBoltStore(boltDirPath string) (*Store, error) {
	boltDb, err := rawdb.NewBoltDB(boltDirPath)
	if err != nil {
		return nil, err
	}
	return &Store{KVDb: boltDb}, nil
}

func NewS3Store(accKey, secretKey, region, bktPrefix, endpoint string) (*Store, error) {
	s3Db, err := rawdb.NewS3DB(accKey, secretKey, region, bktPrefix, endpoint)
	if err != nil {
		return nil, err
	}
	return &Store{KVDb: s3Db}, nil
}

func (s *Store) Close() error {
	return s.KVDb.Close()
}

func (s *Store) SaveRegistration(res schema.RegistrationResult) error {
	by, err := json.Marshal(&res)
	if err != nil {
		return err
	}
	return s.KVDb.Put(schema.RegistrationsBucket, res.Name, by)
}

func (s *Store) LoadRegistration(name string) (res schema.RegistrationResult, err error) {
	by, err := s.KVDb.Get(schema.RegistrationsBucket, name)
	if err != nil {
		return
	}
	err = json.Unmarshal(by, &res)
	return
}

func (s *Store) IsExistRegistration(name string) bool {
	return s.KVDb.Exist(schema.RegistrationsBucket, name)
}

// Constants: last controller-reported values, reloaded on restart.

func (s *Store) SaveCommitmentAges(minSec, maxSec int64) error {
	by, err := json.Marshal(map[string]int64{"min": minSec, "max": maxSec})
	if err != nil {
		return err
	}
	return s.KVDb.Put(schema.ConstantsBucket, "commitment_ages", by)
}

func (s *Store) LoadCommitmentAges() (minSec, maxSec int64, err error) {
	by, err := s.KVDb.Get(schema.ConstantsBucket, "commitment_ages")
	if err != nil {
		return
	}
	ages := map[string]int64{}
	if err = json.Unmarshal(by, &ages); err != nil {
		return
	}
	return ages["min"], ages["max"], nil
}

// Watch pending pool: labels queued for the next availability sweep.

func (s *Store) PutWatchPool(label string) error {
	return s.KVDb.Put(schema.WatchPendingPoolBucket, label, []byte("0x01"))
}

func (s *Store) LoadWatchPool(num int) ([]string, error) {
	keys, err := s.KVDb.GetAllKey(schema.WatchPendingPoolBucket)
	if err != nil {
		return nil, err
	}
	if len(keys) > num {
		keys = keys[:num]
	}
	return keys, nil
}

func (s *Store) DelWatchPool(label string) error {
	return s.KVDb.Delete(schema.WatchPendingPoolBucket, label)
}
