package connector

import (
	"fmt"
	"strconv"

	"catchup-feed/internal/domain/entity"
)

// Config keys read out of entity.Channel.Config. Every driver validates
// only the subset it needs.
const (
	ConfigKeyURL            = "url"
	ConfigKeyItemSelector   = "item_selector"
	ConfigKeyTitleSelector  = "title_selector"
	ConfigKeyURLSelector    = "url_selector"
	ConfigKeyDateSelector   = "date_selector"
	ConfigKeyDateFormat     = "date_format"
	ConfigKeyURLPrefix      = "url_prefix"
	ConfigKeyFollowLinks    = "follow_links"
	ConfigKeyDenyPrivateIPs = "deny_private_ips"
	ConfigKeyMaxBodyBytes   = "max_body_bytes"
)

const defaultMaxBodyBytes = 10 * 1024 * 1024

func requireConfig(channel *entity.Channel, key string) (string, error) {
	val, ok := channel.Config[key]
	if !ok || val == "" {
		return "", fmt.Errorf("channel %d: missing required config key %q", channel.ID, key)
	}
	return val, nil
}

func configBool(channel *entity.Channel, key string, fallback bool) bool {
	val, ok := channel.Config[key]
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func configInt64(channel *entity.Channel, key string, fallback int64) int64 {
	val, ok := channel.Config[key]
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func denyPrivateIPs(channel *entity.Channel) bool {
	return configBool(channel, ConfigKeyDenyPrivateIPs, true)
}

func maxBodyBytes(channel *entity.Channel) int64 {
	return configInt64(channel, ConfigKeyMaxBodyBytes, defaultMaxBodyBytes)
}
