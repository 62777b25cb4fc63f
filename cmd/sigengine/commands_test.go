package main

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/vadiminshakov/sigengine/config"
)

func TestGroupByPlatform(t *testing.T) {
	configs := []config.Config{
		{Platform: config.PlatformBybit, Interval: "1h"},
		{Platform: config.PlatformBinance, Interval: "1h"},
		{Platform: config.PlatformBybit, Interval: "4h"},
	}

	groups := groupByPlatform(configs)
	assert.Len(t, groups, 2)
	assert.Equal(t, config.PlatformBybit, groups[0][0].Platform)
	assert.Len(t, groups[0], 2)
	assert.Equal(t, "4h", groups[0][1].Interval)
	assert.Len(t, groups[1], 1)
}

func TestIgnoreCanceled(t *testing.T) {
	assert.NoError(t, ignoreCanceled(context.Canceled))
	assert.NoError(t, ignoreCanceled(nil))
	assert.Error(t, ignoreCanceled(errors.New("boom")))
}
