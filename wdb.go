package flowens

import (
	"path"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/flow-platform/flowens/schema"
)

const sqliteName = "flowens.sqlite"

type Wdb struct {
	Db *gorm.DB
}

func NewMysqlDb(dsn string) *Wdb {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:          logger.Default.LogMode(logger.Error),
		CreateBatchSize: 200,
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect mysql db success")
	return &Wdb{Db: db}
}

func NewSqliteDb(dbDir string) *Wdb {
	db, err := gorm.Open(sqlite.Open(path.Join(dbDir, sqliteName)), &gorm.Config{
		Logger:          logger.Default.LogMode(logger.Error),
		CreateBatchSize: 200,
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect sqlite db success")
	return &Wdb{Db: db}
}

func (w *Wdb) Migrate() error {
	return w.Db.AutoMigrate(&schema.Activity{}, &schema.WatchedDomain{}, &schema.RegistrationRecord{})
}

func (w *Wdb) Close() {
	sql, err := w.Db.DB()
	if err == nil {
		sql.Close()
	}
}

func (w *Wdb) InsertActivity(activity schema.Activity) error {
	return w.Db.Create(&activity).Error
}

func (w *Wdb) GetActivitiesByOwner(owner string, cursorId int, num int) ([]schema.Activity, error) {
	records := make([]schema.Activity, 0, num)
	err := w.Db.Model(&schema.Activity{}).
		Where("owner = ? and id > ?", owner, cursorId).
		Order("id asc").Limit(num).Find(&records).Error
	return records, err
}

func (w *Wdb) InsertRegistration(record schema.RegistrationRecord) error {
	return w.Db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error
}

func (w *Wdb) GetRegistrationsByOwner(owner string) ([]schema.RegistrationRecord, error) {
	records := make([]schema.RegistrationRecord, 0)
	err := w.Db.Where("owner = ?", owner).Find(&records).Error
	return records, err
}

func (w *Wdb) InsertWatchedDomain(wd schema.WatchedDomain) error {
	return w.Db.Clauses(clause.OnConflict{DoNothing: true}).Create(&wd).Error
}

func (w *Wdb) GetWatchedDomain(label string) (wd schema.WatchedDomain, err error) {
	err = w.Db.Where("label = ?", label).First(&wd).Error
	return
}

func (w *Wdb) GetUnnotifiedWatchedDomains() ([]schema.WatchedDomain, error) {
	records := make([]schema.WatchedDomain, 0)
	err := w.Db.Where("notified = ?", false).Find(&records).Error
	return records, err
}

func (w *Wdb) UpdateWatchedDomainStatus(label, status string, notified bool) error {
	return w.Db.Model(&schema.WatchedDomain{}).Where("label = ?", label).
		Updates(map[string]interface{}{
			"status":     status,
			"notified":   notified,
			"checked_at": time.Now(),
		}).Error
}

func (w *Wdb) DeleteWatchedDomain(label string) error {
	return w.Db.Where("label = ?", label).Delete(&schema.WatchedDomain{}).Error
}
