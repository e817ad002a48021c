package xid

import (
	"fmt"
	"hash/fnv"
	"os"
	"strconv"
)

// EnvMachineID 直接指定机器号的环境变量。
const EnvMachineID = "XPROP_MACHINE_ID"

var osHostname = os.Hostname

// DefaultMachineID 依次尝试 EnvMachineID 与主机名哈希。
// 两者都不可用时返回错误，此时应改用 Sonyflake 默认的私有 IP 策略（WithMachineID(nil)）。
//
// 哈希存在碰撞可能，节点较多时应显式设置 EnvMachineID。
func DefaultMachineID() (uint16, error) {
	if s := os.Getenv(EnvMachineID); s != "" {
		id, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return 0, fmt.Errorf("xid: invalid %s value %q: %w", EnvMachineID, s, err)
		}
		return uint16(id), nil
	}
	host, err := osHostname()
	if err != nil {
		return 0, fmt.Errorf("xid: hostname: %w", err)
	}
	if host == "" {
		return 0, fmt.Errorf("xid: empty hostname")
	}
	return hashToMachineID(host), nil
}

func hashToMachineID(s string) uint16 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	sum := h.Sum32()
	return uint16(sum ^ (sum >> 16))
}
