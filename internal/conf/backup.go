package conf

import "github.com/dshills/conftree/internal/conf/opt"

// ensureBackup saves the current value of an entry unless the same storage
// slot is already backed up. Storageless and global entries are skipped.
func (c *Config) ensureBackup(e *Entry) {
	if e.slot < 0 || e.Opt.Flags&opt.FlagGlobal != 0 {
		return
	}
	for _, b := range c.backups {
		if b.e.group == e.group && b.e.slot == e.slot {
			return
		}
	}
	c.backups = append(c.backups, backupRecord{
		e:     e,
		saved: e.Opt.Type.Copy(c.groups[e.group].values[e.slot]),
	})
}

// BackupOpt saves one option's current value for a later RestoreBackups.
func (c *Config) BackupOpt(name string) {
	e, err := c.resolve(name)
	if err != nil {
		c.log.Error("error backing up option %s: %v", c.displayName(name), err)
		return
	}
	c.ensureBackup(e)
}

// BackupAllOpts saves every backed-up-able option's current value.
func (c *Config) BackupAllOpts() {
	for _, e := range c.entries {
		c.ensureBackup(e)
	}
}

// RestoreBackups writes all backed-up values back, newest first, clearing
// the set-locally marks. Restores that change a value notify observers like
// any other set.
func (c *Config) RestoreBackups() {
	for len(c.backups) > 0 {
		b := c.backups[len(c.backups)-1]
		c.backups = c.backups[:len(c.backups)-1]
		e := b.e
		old := c.groups[e.group].values[e.slot]
		e.setLocally = false
		if e.Opt.Type.Equal(old, b.saved) {
			continue
		}
		c.groups[e.group].values[e.slot] = e.Opt.Type.Copy(b.saved)
		c.notifyChange(e, old, 0)
	}
}
