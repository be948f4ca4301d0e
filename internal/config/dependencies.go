package config

import (
	"database/sql"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
)

// Validate dipakai bersama oleh semua handler. Nama field pada pesan
// error mengikuti tag json.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Dependencies menyimpan koneksi yang dibuat saat start-up.
type Dependencies struct {
	DB    *sql.DB
	Redis *redis.Client
}

// Close menutup semua koneksi yang terbuka.
func (d *Dependencies) Close() {
	if d.Redis != nil {
		d.Redis.Close()
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
