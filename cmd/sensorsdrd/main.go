package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/hostmc/sensorsdr"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	var configPath string
	var sdr bool
	flag.StringVar(&configPath, "config", "", "Path to the sensor population config file")
	flag.BoolVar(&sdr, "sdr", true, "Print sensor data repository entries and readings")
	flag.Parse()

	cfg := sensorsdr.DefaultConfig()
	if configPath != "" {
		loaded, err := sensorsdr.LoadConfig(configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}

	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Log.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	backend := sensorsdr.BuildStaticBackend(cfg)
	service := sensorsdr.NewService(backend, backend, log)
	router := sensorsdr.NewRouter(service, log)

	if cfg.Monitor.Enabled {
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Monitor.MetricsPort)
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(addr, nil); err != nil {
				log.WithError(err).Error("metrics listener stopped")
			}
		}()
	}

	if sdr {
		if err := dumpRepository(router, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}

// dumpRepository walks the repository the way a remote console would:
// reserve, then read whole records until the next record id runs out.
func dumpRepository(router *sensorsdr.Router, out *os.File) error {
	resp, code := router.Dispatch(sensorsdr.NetworkFunctionStorage, sensorsdr.CommandReserveSDRRepo, nil)
	if code != sensorsdr.CommandCompleted || len(resp) != 2 {
		return fmt.Errorf("reserve repository failed: %s", code)
	}
	reservation := uint16(resp[0]) | uint16(resp[1])<<8

	table := tablewriter.NewWriter(out)
	table.SetBorder(true)
	table.SetAutoWrapText(true)
	table.SetBorders(tablewriter.Border{Left: true, Top: true, Right: true, Bottom: true})
	table.SetCenterSeparator("|")
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"Sensor", "Num", "Type", "Reading"})

	recordID := uint16(0)
	for {
		req := []byte{
			byte(reservation), byte(reservation >> 8),
			byte(recordID), byte(recordID >> 8),
			0, 0xFF,
		}
		resp, code := router.Dispatch(sensorsdr.NetworkFunctionStorage, sensorsdr.CommandGetSDR, req)
		if code != sensorsdr.CommandCompleted {
			return fmt.Errorf("get record 0x%04x failed: %s", recordID, code)
		}
		if len(resp) < 2 {
			return fmt.Errorf("get record 0x%04x: short response", recordID)
		}
		next := uint16(resp[0]) | uint16(resp[1])<<8

		record, err := sensorsdr.ParseFullSensorRecord(resp[2:])
		if sensorsdr.IsUnsupportedSDRTypeErr(err) {
			// FRU locator and other non sensor records carry no reading
			if next == 0xFFFF {
				break
			}
			recordID = next
			continue
		}
		if err != nil {
			return err
		}
		table.Append([]string{
			record.Name,
			fmt.Sprintf("0x%02x", record.SensorNumber),
			sensorsdr.SensorTypeName(record.SensorType),
			readingString(router, record),
		})

		if next == 0xFFFF {
			break
		}
		recordID = next
	}
	table.Render()
	return nil
}

func readingString(router *sensorsdr.Router, record *sensorsdr.FullRecordSummary) string {
	resp, code := router.Dispatch(sensorsdr.NetworkFunctionSensorEvent,
		sensorsdr.CommandGetSensorReading, []byte{record.SensorNumber})
	if code != sensorsdr.CommandCompleted || len(resp) < 1 {
		return "na"
	}
	value := record.ConvertRawToValue(resp[0])
	return fmt.Sprintf("%.2f %s", value, sensorsdr.UnitName(record.UnitCode))
}
