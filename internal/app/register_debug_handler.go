// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/relabs-tech/env_monitor/internal/config"
	"github.com/relabs-tech/env_monitor/internal/sensors"
)

// RegisterDebugger serves register level access to one BME280.
type RegisterDebugger struct {
	host    *sensors.I2CHost
	addr    uint16
	allowed []config.RegisterRange
}

// NewRegisterDebugger returns a debugger for the device at addr. Writes are
// limited to the registers covered by allowed.
func NewRegisterDebugger(h *sensors.I2CHost, addr uint16, allowed []config.RegisterRange) *RegisterDebugger {
	return &RegisterDebugger{host: h, addr: addr, allowed: allowed}
}

// RegisterDebugSession holds WebSocket connection state for register debugging
type RegisterDebugSession struct {
	Conn *websocket.Conn
	rd   *RegisterDebugger
}

// RegisterCmd is any request from the debug page.
type RegisterCmd struct {
	Action  string `json:"action"` // "get_map", "read", "read_all", "write", "export_config"
	Address string `json:"addr,omitempty"`
	Value   string `json:"value,omitempty"`
}

// Response types
type RegisterResponse struct {
	Type        string                 `json:"type"` // "register_data", "register_map", "export_config", "error"
	Device      string                 `json:"device,omitempty"`
	Address     string                 `json:"addr,omitempty"`
	Value       string                 `json:"value,omitempty"`
	Registers   map[string]string      `json:"registers,omitempty"` // for bulk read
	Timestamp   string                 `json:"timestamp,omitempty"`
	Message     string                 `json:"message,omitempty"`
	RegisterMap []sensors.RegisterInfo `json:"register_map,omitempty"`
	Config      string                 `json:"config,omitempty"`
	Filename    string                 `json:"filename,omitempty"`
}

// RegisterConfigFile represents the JSON structure for exported register configuration
type RegisterConfigFile struct {
	Version   int               `json:"version"`
	Device    string            `json:"device"`
	I2CAddr   string            `json:"i2c_addr"`
	Timestamp string            `json:"timestamp"`
	Registers map[string]string `json:"registers"` // hex address -> hex value
}

// HandleRegisterDebugWS handles the WebSocket connection for register debugging
func (rd *RegisterDebugger) HandleRegisterDebugWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("register_debug: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	session := &RegisterDebugSession{Conn: conn, rd: rd}

	// Send register map on connection
	if err := session.Conn.WriteJSON(session.registerMap()); err != nil {
		log.Printf("register_debug: error sending register map: %v", err)
		return
	}

	// Message loop
	for {
		var cmd RegisterCmd
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("register_debug: websocket error: %v", err)
			}
			break
		}
		if err := conn.WriteJSON(session.handle(cmd)); err != nil {
			log.Printf("register_debug: websocket write error: %v", err)
			break
		}
	}
}

// handle routes one command and returns the response to send.
func (s *RegisterDebugSession) handle(cmd RegisterCmd) RegisterResponse {
	switch cmd.Action {
	case "get_map":
		return s.registerMap()
	case "read":
		return s.handleRead(cmd)
	case "read_all":
		return s.handleReadAll()
	case "write":
		return s.handleWrite(cmd)
	case "export_config":
		return s.handleExportConfig()
	case "":
		return errorResponse("missing or invalid action field")
	default:
		return errorResponse(fmt.Sprintf("unknown action: %s", cmd.Action))
	}
}

func (s *RegisterDebugSession) handleRead(cmd RegisterCmd) RegisterResponse {
	if cmd.Address == "" {
		return errorResponse("missing addr field")
	}
	reg, err := parseHexByte(cmd.Address)
	if err != nil {
		return errorResponse(fmt.Sprintf("invalid address format: %s", cmd.Address))
	}

	value, err := sensors.ReadRegister(s.rd.host, s.rd.addr, reg)
	if err != nil {
		return errorResponse(fmt.Sprintf("read error: %v", err))
	}

	return RegisterResponse{
		Type:      "register_data",
		Device:    "bme280",
		Address:   fmt.Sprintf("0x%02X", reg),
		Value:     fmt.Sprintf("0x%02X", value),
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func (s *RegisterDebugSession) handleReadAll() RegisterResponse {
	registers, err := sensors.DumpRegisters(s.rd.host, s.rd.addr)
	if err != nil {
		return errorResponse(fmt.Sprintf("read all error: %v", err))
	}
	return RegisterResponse{
		Type:      "register_data",
		Device:    "bme280",
		Registers: hexMap(registers),
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func (s *RegisterDebugSession) handleWrite(cmd RegisterCmd) RegisterResponse {
	if cmd.Address == "" || cmd.Value == "" {
		return errorResponse("missing addr or value field")
	}

	reg, err := parseHexByte(cmd.Address)
	if err != nil {
		return errorResponse(fmt.Sprintf("invalid address format: %s", cmd.Address))
	}
	value, err := parseHexByte(cmd.Value)
	if err != nil {
		return errorResponse(fmt.Sprintf("invalid value format: %s", cmd.Value))
	}

	if !isRegisterWritable(reg, s.rd.allowed) {
		return errorResponse(fmt.Sprintf("register 0x%02X not in allowed write ranges", reg))
	}
	if err := sensors.WriteRegister(s.rd.host, s.rd.addr, reg, value); err != nil {
		return errorResponse(fmt.Sprintf("write error: %v", err))
	}

	return RegisterResponse{
		Type:      "register_data",
		Device:    "bme280",
		Address:   fmt.Sprintf("0x%02X", reg),
		Value:     fmt.Sprintf("0x%02X", value),
		Timestamp: time.Now().Format(time.RFC3339),
		Message:   "write successful",
	}
}

func (s *RegisterDebugSession) handleExportConfig() RegisterResponse {
	registers, err := sensors.DumpRegisters(s.rd.host, s.rd.addr)
	if err != nil {
		return errorResponse(fmt.Sprintf("export error: %v", err))
	}

	now := time.Now()
	configFile := RegisterConfigFile{
		Version:   1,
		Device:    "bme280",
		I2CAddr:   fmt.Sprintf("0x%02X", s.rd.addr),
		Timestamp: now.Format(time.RFC3339),
		Registers: hexMap(registers),
	}
	configJSON, err := json.Marshal(configFile)
	if err != nil {
		return errorResponse(fmt.Sprintf("export error: %v", err))
	}

	return RegisterResponse{
		Type:     "export_config",
		Device:   "bme280",
		Message:  "config exported",
		Config:   string(configJSON),
		Filename: fmt.Sprintf("bme280_%02x_%s_registers.json", s.rd.addr, now.Format("20060102_150405")),
	}
}

func (s *RegisterDebugSession) registerMap() RegisterResponse {
	return RegisterResponse{
		Type:        "register_map",
		Device:      "bme280",
		RegisterMap: sensors.BME280RegisterMap(),
	}
}

func errorResponse(message string) RegisterResponse {
	return RegisterResponse{Type: "error", Message: message}
}

func hexMap(regs map[byte]byte) map[string]string {
	out := make(map[string]string, len(regs))
	for addr, value := range regs {
		out[fmt.Sprintf("0x%02X", addr)] = fmt.Sprintf("0x%02X", value)
	}
	return out
}

func parseHexByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	return byte(v), err
}

// isRegisterWritable checks if a register address is in the allowed write ranges
func isRegisterWritable(reg byte, allowed []config.RegisterRange) bool {
	for _, r := range allowed {
		if reg >= r.From && reg <= r.To {
			return true
		}
	}
	return false
}

// RunRegisterDebug opens the sensor bus and serves the register debug page.
func RunRegisterDebug() error {
	cfg := config.Get()

	session, err := sensors.OpenBME280(cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	addr, err := sensors.Probe(session.Host, cfg.BME280Addresses)
	if err != nil {
		return err
	}
	log.Printf("register_debug: BME280 found at 0x%02X", addr)

	allowed, err := config.ParseRegisterRanges(cfg.RegisterDebugAllowWrites)
	if err != nil {
		return err
	}
	if len(allowed) == 0 {
		log.Println("register_debug: read-only (REGISTER_DEBUG_ALLOW_WRITES is empty)")
	}

	rd := NewRegisterDebugger(session.Host, addr, allowed)
	http.HandleFunc("/ws", rd.HandleRegisterDebugWS)
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "web/register_debug.html")
	})

	listen := fmt.Sprintf(":%d", cfg.RegisterDebugPort)
	log.Printf("register_debug: listening on %s", listen)
	return http.ListenAndServe(listen, nil)
}
