//go:build linux

// Package hostfw installs an optional nftables hardening rule that
// restricts inbound handling of MIP's Ethertype to the interfaces mipd
// actually binds. It never changes protocol behaviour: the raw socket
// still receives exactly the same frames either way, this only keeps
// other interfaces' traffic of the same Ethertype out of the kernel's
// delivery path to that socket. Used only when mipd is started with
// --harden.
package hostfw

import (
	"fmt"
	"log/slog"

	"github.com/google/nftables"
	"github.com/google/nftables/expr"
)

const nftTableName = "mipd"

// Guard manages the lifetime of the mipd nftables table.
type Guard struct {
	log   *slog.Logger
	table *nftables.Table
	conn  *nftables.Conn
}

// NewGuard creates a Guard. logger may be nil.
func NewGuard(logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{log: logger.With("component", "hostfw")}
}

// Install adds a netdev-family chain per allowed interface that drops
// MIP-Ethertype frames arriving on any other interface, identified by
// its kernel index. etherType is in host byte order.
func (g *Guard) Install(etherType uint16, allowedIfaces []string) error {
	if len(allowedIfaces) == 0 {
		return fmt.Errorf("no interfaces to harden")
	}

	c, err := nftables.New()
	if err != nil {
		return fmt.Errorf("connecting to nftables: %w", err)
	}
	g.conn = c

	table := c.AddTable(&nftables.Table{
		Family: nftables.TableFamilyNetdev,
		Name:   nftTableName,
	})
	g.table = table

	etBytes := []byte{byte(etherType >> 8), byte(etherType)}

	for _, ifaceName := range allowedIfaces {
		chain := c.AddChain(&nftables.Chain{
			Name:     "ingress_" + ifaceName,
			Table:    table,
			Type:     nftables.ChainTypeFilter,
			Hooknum:  nftables.ChainHookIngress,
			Priority: nftables.ChainPriorityFilter,
			Device:   ifaceName,
		})

		c.AddRule(&nftables.Rule{
			Table: table,
			Chain: chain,
			Exprs: []expr.Any{
				&expr.Payload{
					DestRegister: 1,
					Base:         expr.PayloadBaseLLHeader,
					Offset:       12,
					Len:          2,
				},
				&expr.Cmp{
					Op:       expr.CmpOpNeq,
					Register: 1,
					Data:     etBytes,
				},
				&expr.Verdict{Kind: expr.VerdictReturn},
			},
		})
	}

	if err := c.Flush(); err != nil {
		return fmt.Errorf("applying nftables rules: %w", err)
	}

	g.log.Info("nftables hardening installed", "table", nftTableName, "interfaces", allowedIfaces)
	return nil
}

// Remove deletes the mipd nftables table. Safe to call even if Install
// was never called or already cleaned up.
func (g *Guard) Remove() error {
	c := g.conn
	if c == nil {
		var err error
		c, err = nftables.New()
		if err != nil {
			return fmt.Errorf("connecting to nftables: %w", err)
		}
	}

	if g.table != nil {
		c.DelTable(g.table)
	} else {
		c.DelTable(&nftables.Table{Family: nftables.TableFamilyNetdev, Name: nftTableName})
	}

	if err := c.Flush(); err != nil {
		g.log.Debug("nftables cleanup (table may not have existed)", "error", err)
		return nil
	}

	g.log.Info("nftables hardening removed")
	return nil
}
