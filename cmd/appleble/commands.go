package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mikoaf/appleble/bluetooth"
	"github.com/mikoaf/appleble/continuity"
	"github.com/mikoaf/appleble/server"
)

// MessageFlags describes one message on the command line.
type MessageFlags struct {
	Kind continuity.Kind `arg:"" help:"Message kind: airdrop, airplay-source, airplay-target, airprint, findmy"`

	AppleID   *string `help:"AirDrop Apple ID, hashed into a token"`
	Phone     *string `help:"AirDrop phone number, hashed into a token"`
	Email     *string `help:"AirDrop email address, hashed into a token"`
	IP        string  `help:"IPv4 (airplay-target) or IPv6 (airprint) address"`
	Port      uint16  `help:"AirPrint port"`
	Power     uint8   `help:"AirPrint power level"`
	PublicKey string  `help:"FindMy public key, 28 bytes hex"`
}

func (f MessageFlags) message(tokens continuity.TokenFunc) (continuity.Message, error) {
	return continuity.Params{
		Kind:      f.Kind,
		AppleID:   f.AppleID,
		Phone:     f.Phone,
		Email:     f.Email,
		IP:        f.IP,
		Port:      f.Port,
		Power:     f.Power,
		PublicKey: f.PublicKey,
	}.Message(tokens)
}

type encodeCmd struct {
	MessageFlags `embed:""`
}

func (c *encodeCmd) Run(rt *runtime) error {
	m, err := c.message(rt.cfg.Tokens())
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(m.Encode()))
	if fm, ok := continuity.Normalize(m).(continuity.FindMy); ok {
		addr := fm.Address()
		fmt.Fprintf(os.Stderr, "device address: %s\n", bluetooth.MACFromBytes(addr))
	}
	return nil
}

type decodeCmd struct {
	Payload string `arg:"" help:"Manufacturer data, hex"`
	Address string `help:"Advertiser device address for findmy payloads (XX:XX:XX:XX:XX:XX)"`
}

func (c *decodeCmd) Run(rt *runtime) error {
	payload, err := hex.DecodeString(strings.NewReplacer(" ", "", ":", "").Replace(c.Payload))
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	var addr [continuity.AddressLen]byte
	if c.Address != "" {
		if addr, err = continuity.ParseAddress(c.Address); err != nil {
			return err
		}
	}
	m, err := continuity.Decode(payload, addr)
	if err != nil {
		return err
	}
	fmt.Println(m)
	return nil
}

// openAdapter enables the configured BlueZ adapter.
func openAdapter(rt *runtime) (*bluetooth.Adapter, *bluetooth.Broadcaster, error) {
	adapter := bluetooth.NewAdapter(rt.cfg.Adapter)
	adapter.SetAddressTool(rt.cfg.AddressTool, nil)
	if err := adapter.Enable(); err != nil {
		return nil, nil, err
	}
	return adapter, bluetooth.NewBroadcaster(adapter), nil
}

func newAdvertiser(rt *runtime, t continuity.Transport) *continuity.Advertiser {
	opts := append(rt.cfg.AdvertiserOptions(), continuity.WithLogger(rt.logger))
	return continuity.NewAdvertiser(t, opts...)
}

type advertiseCmd struct {
	MessageFlags `embed:""`
}

func (c *advertiseCmd) Run(ctx context.Context, rt *runtime) error {
	m, err := c.message(rt.cfg.Tokens())
	if err != nil {
		return err
	}
	adapter, bc, err := openAdapter(rt)
	if err != nil {
		return err
	}
	defer adapter.Close()

	adv := newAdvertiser(rt, bc)
	h, err := adv.Register(ctx, m)
	if err != nil {
		return err
	}
	rt.logger.Info().Str("message", fmt.Sprint(m)).Msg("advertising, interrupt to stop")

	<-ctx.Done()
	rt.logger.Info().Msg("stopping advertisement")
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return adv.Unregister(stopCtx, h)
}

type serveCmd struct {
	Listen string `help:"HTTP listen address, overrides the config file"`
}

func (c *serveCmd) Run(ctx context.Context, rt *runtime) error {
	adapter, bc, err := openAdapter(rt)
	if err != nil {
		return err
	}
	defer adapter.Close()

	srv := server.New(server.Config{
		Advertiser:   newAdvertiser(rt, bc),
		Tokens:       rt.cfg.Tokens(),
		LocalAddress: bc.LocalDeviceAddress,
		Logger:       rt.logger,
	})

	address := rt.cfg.Listen
	if c.Listen != "" {
		address = c.Listen
	}
	hs := &http.Server{Addr: address, Handler: srv}

	errc := make(chan error, 1)
	go func() {
		rt.logger.Info().Str("address", address).Msg("server running")
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	rt.logger.Info().Msg("shutting down")
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Join(hs.Shutdown(stopCtx), srv.Shutdown(stopCtx), bc.StopAll(stopCtx))
}
