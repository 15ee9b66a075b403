// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

package ystech

import (
	"fmt"
	"strings"
	"time"
)

// FormatFrame renders one received or transmitted frame in the style used
// by the monitor command: timestamp, direction, identifier, PF name, hex
// payload and, when available, the decoded record.
func FormatFrame(ts time.Time, direction string, id uint32, data []byte, record any) string {
	pf := ParseID(id).PF

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s  ID=0x%08X  PF=%-22s  Data=% X",
		ts.Format("15:04:05.000"), direction, id, PFName(pf), data)
	if record != nil {
		b.WriteString("  | ")
		b.WriteString(FormatRecord(record))
	}
	return b.String()
}

// FormatRecord renders a decoded record as a compact single line.
func FormatRecord(record any) string {
	switch r := record.(type) {
	case DCData:
		return fmt.Sprintf("voltage=%.1fV current=%.1fA power=%.1fkW inlet_temp=%.1fC",
			r.Voltage, r.Current, r.Power, r.InletTemperature)
	case CapacityEnergy:
		return fmt.Sprintf("capacity=%.1fAh energy=%.1fWh outlet_temp=%.1fC",
			r.Capacity, r.Energy, r.OutletTemperature)
	case Status:
		return fmt.Sprintf("state=%s fault=0x%04X (%s)",
			r.RunningState, r.FaultCode, r.FaultDescription())
	case GridVoltage:
		return fmt.Sprintf("u=%.1fV v=%.1fV w=%.1fV", r.U, r.V, r.W)
	case GridCurrent:
		return fmt.Sprintf("u=%.1fA v=%.1fA w=%.1fA pf=%.2f", r.U, r.V, r.W, r.PowerFactor)
	case SystemPower:
		return fmt.Sprintf("active=%.1fkW reactive=%.1fkVar apparent=%.1fkVA freq=%.1fHz",
			r.ActivePower, r.ReactivePower, r.ApparentPower, r.Frequency)
	case LoadVoltage:
		return fmt.Sprintf("u=%.1fV v=%.1fV w=%.1fV", r.U, r.V, r.W)
	case LoadCurrent:
		return fmt.Sprintf("u=%.1fA v=%.1fA w=%.1fA", r.U, r.V, r.W)
	case LoadPower:
		return fmt.Sprintf("active=%.1fkW reactive=%.1fkVar apparent=%.1fkVA",
			r.ActivePower, r.ReactivePower, r.ApparentPower)
	case PhasePower:
		return fmt.Sprintf("phase=%s active=%.1fkW reactive=%.1fkVar apparent=%.1fkVA",
			r.Phase, r.ActivePower, r.ReactivePower, r.ApparentPower)
	case HighResDC:
		return fmt.Sprintf("voltage=%.3fV current=%.3fA", r.Voltage, r.Current)
	case IOAndAD:
		return fmt.Sprintf("io=%d%d%d%d ad1=%.3fV ad2=%.3fV",
			r.IO1, r.IO2, r.IO3, r.IO4, r.AD1, r.AD2)
	case VersionInfo:
		return fmt.Sprintf("hw=%d.%d.%d sw=%d.%d.%d",
			r.HardwareMajor, r.HardwareMinor, r.HardwarePatch,
			r.SoftwareMajor, r.SoftwareMinor, r.SoftwarePatch)
	case ProtectionParams1:
		return fmt.Sprintf("max_v=%.1fV min_v=%.1fV max_charge=%.1fA max_discharge=%.1fA",
			r.MaxOutputVoltage, r.MinOutputVoltage, r.MaxChargeCurrent, r.MaxDischargeCurrent)
	case ProtectionParams2:
		return fmt.Sprintf("max_charge=%.1fkW max_discharge=%.1fkW ac_upper=%.1fV ac_lower=%.1fV",
			r.MaxChargePower, r.MaxDischargePower, r.ACVoltageUpper, r.ACVoltageLower)
	case ProtectionParams3:
		return fmt.Sprintf("discharge_freq=%.1fHz charge_freq=%.1fHz ac_upper=%.0fHz ac_lower=%.0fHz",
			r.DischargeFreqUpper, r.ChargeFreqLower, r.ACFreqUpper, r.ACFreqLower)
	case SetReply:
		return fmt.Sprintf("success=%t", r.Success)
	case WorkingModeReply:
		return fmt.Sprintf("mode=%s", r.Mode)
	default:
		return fmt.Sprintf("%+v", record)
	}
}

// RecordFields flattens a decoded record into ordered key/value pairs for
// structured sinks (frame log, dashboard panes).
func RecordFields(record any) []Field {
	switch r := record.(type) {
	case DCData:
		return []Field{
			{"voltage", r.Voltage}, {"current", r.Current},
			{"power", r.Power}, {"inlet_temperature", r.InletTemperature},
		}
	case CapacityEnergy:
		return []Field{
			{"capacity", r.Capacity}, {"energy", r.Energy},
			{"outlet_temperature", r.OutletTemperature},
		}
	case Status:
		return []Field{
			{"running_state", r.RunningState.String()},
			{"fault_code", r.FaultCode},
			{"fault", r.FaultDescription()},
		}
	case GridVoltage:
		return []Field{{"u", r.U}, {"v", r.V}, {"w", r.W}}
	case GridCurrent:
		return []Field{{"u", r.U}, {"v", r.V}, {"w", r.W}, {"power_factor", r.PowerFactor}}
	case SystemPower:
		return []Field{
			{"active_power", r.ActivePower}, {"reactive_power", r.ReactivePower},
			{"apparent_power", r.ApparentPower}, {"frequency", r.Frequency},
		}
	case LoadVoltage:
		return []Field{{"u", r.U}, {"v", r.V}, {"w", r.W}}
	case LoadCurrent:
		return []Field{{"u", r.U}, {"v", r.V}, {"w", r.W}}
	case LoadPower:
		return []Field{
			{"active_power", r.ActivePower}, {"reactive_power", r.ReactivePower},
			{"apparent_power", r.ApparentPower},
		}
	case PhasePower:
		return []Field{
			{"phase", r.Phase}, {"active_power", r.ActivePower},
			{"reactive_power", r.ReactivePower}, {"apparent_power", r.ApparentPower},
		}
	case HighResDC:
		return []Field{{"voltage", r.Voltage}, {"current", r.Current}}
	case IOAndAD:
		return []Field{
			{"io1", r.IO1}, {"io2", r.IO2}, {"io3", r.IO3}, {"io4", r.IO4},
			{"ad1", r.AD1}, {"ad2", r.AD2},
		}
	case VersionInfo:
		return []Field{
			{"hw_major", r.HardwareMajor}, {"hw_minor", r.HardwareMinor}, {"hw_patch", r.HardwarePatch},
			{"sw_major", r.SoftwareMajor}, {"sw_minor", r.SoftwareMinor}, {"sw_patch", r.SoftwarePatch},
		}
	case ProtectionParams1:
		return []Field{
			{"max_output_voltage", r.MaxOutputVoltage}, {"min_output_voltage", r.MinOutputVoltage},
			{"max_charge_current", r.MaxChargeCurrent}, {"max_discharge_current", r.MaxDischargeCurrent},
		}
	case ProtectionParams2:
		return []Field{
			{"max_charge_power", r.MaxChargePower}, {"max_discharge_power", r.MaxDischargePower},
			{"ac_voltage_upper", r.ACVoltageUpper}, {"ac_voltage_lower", r.ACVoltageLower},
		}
	case ProtectionParams3:
		return []Field{
			{"discharge_freq_upper", r.DischargeFreqUpper}, {"charge_freq_lower", r.ChargeFreqLower},
			{"ac_freq_upper", r.ACFreqUpper}, {"ac_freq_lower", r.ACFreqLower},
		}
	case SetReply:
		return []Field{{"success", r.Success}}
	case WorkingModeReply:
		return []Field{{"mode", r.Mode.String()}}
	default:
		return nil
	}
}

// Field is one key/value pair of a flattened record.
type Field struct {
	Key   string
	Value any
}
