package config

import (
	_ "github.com/any-hub/any-repo/internal/layout/maven2"
)
