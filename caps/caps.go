/*
	Provides helper functions for checking if we have what it takes to
	serve a projection through the kernel.
*/
package caps

import (
	"bufio"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/syndtr/gocapability/capability"
)

const (
	fuseDevice = "/dev/fuse"
	fuseConf   = "/etc/fuse.conf"
)

func Scan() *Fulcrum {
	var err error
	f := &Fulcrum{}
	f.onLinux = runtime.GOOS == "linux"
	f.ourUID = os.Getuid()
	if f.onLinux {
		f.ourCaps, err = capability.NewPid2(0) // zero means self
		if err == nil {
			err = f.ourCaps.Load()
		}
		if err != nil {
			panic(err)
		}
	}
	return f
}

type Fulcrum struct {
	onLinux bool
	ourUID  int
	ourCaps capability.Capabilities // valid on linux; nil elsewhere.
}

// Whether we can open the fuse device at all.
func (f Fulcrum) HasFuseDevice() bool {
	if !f.onLinux {
		return false
	}
	fh, err := os.OpenFile(fuseDevice, os.O_RDWR, 0)
	if err != nil {
		return false
	}
	fh.Close()
	return true
}

// Whether we have enough caps to mount fuse filesystems.
// That's the device itself, plus either CAP_SYS_ADMIN (we call mount(2)
// directly) or a `fusermount` helper on the PATH (which is setuid, and
// does the mount for us).
func (f Fulcrum) CanMountFuse() bool {
	if !f.HasFuseDevice() {
		return false
	}
	if f.ourCaps.Get(capability.EFFECTIVE, capability.CAP_SYS_ADMIN) {
		return true
	}
	return f.HasFusermount()
}

// Whether a `fusermount` helper is on the PATH.
func (f Fulcrum) HasFusermount() bool {
	for _, helper := range []string{"fusermount3", "fusermount"} {
		if _, err := exec.LookPath(helper); err == nil {
			return true
		}
	}
	return false
}

// Whether `allow_other` will be honored.
// Root (or CAP_SYS_ADMIN) always may; others need `user_allow_other` in
// /etc/fuse.conf.
func (f Fulcrum) CanAllowOther() bool {
	if !f.onLinux {
		return false
	}
	if f.ourUID == 0 || f.ourCaps.Get(capability.EFFECTIVE, capability.CAP_SYS_ADMIN) {
		return true
	}
	return UserAllowOther(fuseConf)
}

/*
	Whether a fuse.conf at `pth` enables `user_allow_other`.
	A missing or unreadable file doesn't.
*/
func UserAllowOther(pth string) bool {
	fh, err := os.Open(pth)
	if err != nil {
		return false
	}
	defer fh.Close()
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		if strings.TrimSpace(line) == "user_allow_other" {
			return true
		}
	}
	return false
}
