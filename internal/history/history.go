// Package history persists the commands issued at the prompt in a local
// sqlite database, keyed by the server they ran against.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Manager struct {
	db *gorm.DB
}

type Entry struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time `gorm:"index"`

	Command string
	Server  string
	// OK records whether the server accepted the command; null until the
	// reply came back.
	OK sql.NullBool
}

func NewManager(dbFilePath string) (*Manager, error) {
	db, err := gorm.Open(sqlite.Open(dbFilePath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}

	return &Manager{db: db}, nil
}

// Close releases the database connection. Call it on shutdown so the
// sqlite file is flushed cleanly.
func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record stores a command as issued, before its reply is known.
func (m *Manager) Record(command, server string) (*Entry, error) {
	entry := Entry{
		Command: command,
		Server:  server,
	}

	if result := m.db.Create(&entry); result.Error != nil {
		return nil, result.Error
	}
	return &entry, nil
}

// Finish marks an entry with the outcome of its reply.
func (m *Manager) Finish(entry *Entry, ok bool) error {
	entry.OK = sql.NullBool{Bool: ok, Valid: true}
	return m.db.Save(entry).Error
}

// Recent returns the newest entries, newest first. An empty server matches
// every server.
func (m *Manager) Recent(server string, limit int) ([]Entry, error) {
	var entries []Entry
	db := m.db
	if server != "" {
		db = db.Where("server = ?", server)
	}
	result := db.Order("created_at desc").Limit(limit).Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}
	return entries, nil
}

// RecentByPrefix returns the newest entries whose command starts with
// prefix, newest first.
func (m *Manager) RecentByPrefix(prefix string, limit int) ([]Entry, error) {
	var entries []Entry
	result := m.db.Where("command LIKE ?", prefix+"%").
		Order("created_at desc").
		Limit(limit).
		Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}
	return entries, nil
}

// All returns every entry, newest first.
func (m *Manager) All() ([]Entry, error) {
	var entries []Entry
	result := m.db.Order("created_at desc").Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}
	return entries, nil
}

// Reset deletes all history.
func (m *Manager) Reset() error {
	return m.db.Exec("DELETE FROM entries").Error
}
