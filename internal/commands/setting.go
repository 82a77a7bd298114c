package commands

import (
	"context"
	"fmt"

	"github.com/scribe-bot/scribe/internal/errors"
	"github.com/scribe-bot/scribe/internal/lang"
	"github.com/scribe-bot/scribe/internal/store"
	"github.com/scribe-bot/scribe/internal/tzcache"
)

// MySettingCommand manages per-user settings:
//
//	mysetting timezone <IANA name>
//	mysetting maxwpm <n>
type MySettingCommand struct {
	Store *store.Store
	Lang  *lang.Store
}

func (c *MySettingCommand) Name() string { return "mysetting" }

func (c *MySettingCommand) Execute(ctx context.Context, req *Request) (string, error) {
	if len(req.Args) < 2 {
		return c.Lang.Get("setting:err:usage", req.Guild), errors.ErrInvalidInput
	}

	name, value := req.Args[0], req.Args[1]
	switch name {
	case store.SettingTimezone:
		if _, err := tzcache.Location(value); err != nil {
			return c.Lang.Getf("setting:err:timezone", req.Guild, value), errors.ErrInvalidInput
		}
	case store.SettingMaxWPM:
	default:
		return c.Lang.Getf("setting:err:unknown", req.Guild, name), errors.ErrInvalidInput
	}

	if err := c.Store.SetUserSetting(req.User, name, value); err != nil {
		return "", fmt.Errorf("saving setting: %w", err)
	}
	return c.Lang.Getf("setting:saved", req.Guild, name, value), nil
}

// SettingCommand manages per-guild settings, privileged only:
//
//	setting lang <code>
//	setting disable <command>
//	setting enable <command>
type SettingCommand struct {
	Store *store.Store
	Lang  *lang.Store
	// KnownCommand guards disable/enable against typos.
	KnownCommand func(name string) bool
}

func (c *SettingCommand) Name() string { return "setting" }

func (c *SettingCommand) Execute(ctx context.Context, req *Request) (string, error) {
	if !req.Privileged {
		return c.Lang.Get("err:permission", req.Guild), errors.ErrPermission
	}
	if len(req.Args) < 2 {
		return c.Lang.Get("setting:err:usage", req.Guild), errors.ErrInvalidInput
	}

	name, value := req.Args[0], req.Args[1]
	switch name {
	case store.SettingLang:
		if !c.Lang.Supported(value) {
			return c.Lang.Getf("setting:err:lang", req.Guild, value), errors.ErrInvalidInput
		}
		if err := c.Store.SetGuildSetting(req.Guild, store.SettingLang, value); err != nil {
			return "", fmt.Errorf("saving guild lang: %w", err)
		}
		return c.Lang.Getf("setting:saved", req.Guild, name, value), nil
	case "disable", "enable":
		if c.KnownCommand != nil && !c.KnownCommand(value) {
			return c.Lang.Getf("setting:err:unknown", req.Guild, value), errors.ErrInvalidInput
		}
		flag := "0"
		if name == "disable" {
			flag = "1"
		}
		if err := c.Store.SetGuildSetting(req.Guild, "disabled:"+value, flag); err != nil {
			return "", fmt.Errorf("saving command toggle: %w", err)
		}
		return c.Lang.Getf("setting:saved", req.Guild, name, value), nil
	default:
		return c.Lang.Getf("setting:err:unknown", req.Guild, name), errors.ErrInvalidInput
	}
}
