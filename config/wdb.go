package config

import (
	"github.com/inconshreveable/log15"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/flow-platform/flowens/config/schema"
)

var log = log15.New("module", "config")

type Wdb struct {
	Db *gorm.DB
}

func NewWdb(dsn string, useSqlite bool) *Wdb {
	var (
		db  *gorm.DB
		err error
	)
	cfg := &gorm.Config{
		Logger:          logger.Default.LogMode(logger.Error),
		CreateBatchSize: 10,
	}
	if useSqlite {
		db, err = gorm.Open(sqlite.Open(dsn), cfg)
	} else {
		db, err = gorm.Open(mysql.Open(dsn), cfg)
	}
	if err != nil {
		panic(err)
	}
	log.Info("connect config db success")
	return &Wdb{Db: db}
}

func (w *Wdb) Migrate() error {
	return w.Db.AutoMigrate(&schema.FlowConfig{}, &schema.IpRateWhitelist{})
}

func (w *Wdb) GetFlowConfig() (cfg schema.FlowConfig, err error) {
	err = w.Db.First(&cfg).Error
	if err == gorm.ErrRecordNotFound {
		return schema.FlowConfig{}, nil
	}
	return
}

func (w *Wdb) GetAllAvailableIpRateWhitelist() ([]schema.IpRateWhitelist, error) {
	res := make([]schema.IpRateWhitelist, 0)
	err := w.Db.Model(&schema.IpRateWhitelist{}).Where("available = ?", true).Find(&res).Error
	return res, err
}

func (w *Wdb) Close() {
	sql, err := w.Db.DB()
	if err == nil {
		sql.Close()
	}
}
