package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"encoding/json"
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/wheel.go/pkg/env"
	fx "github.com/robotalks/wheel.go/pkg/framework"
	"github.com/robotalks/wheel.go/pkg/wheel"
)

func init() {
	env.SetupFlags()
	wheel.SetupFlags()
}

type presence struct {
	NodeID   string `json:"node_id"`
	Role     string `json:"role"`
	DeviceID uint   `json:"device_id"`
	IMU      bool   `json:"imu"`
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := wheel.Default()
	if err := conf.Validate(); err != nil {
		glog.Exitf("invalid config: %v", err)
	}
	ctx := context.Background()

	link, err := wheel.OpenDrive(conf)
	if err != nil {
		glog.Exitf("open drive: %v", err)
	}
	if err := wheel.InitDrive(ctx, conf, link); err != nil {
		glog.Exitf("init drive: %v", err)
	}

	src, closer, err := wheel.OpenIMU(conf)
	if err != nil {
		glog.Exitf("open IMU: %v", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	envConf := env.NewConfig()
	topics := conf.Topics()
	info, _ := json.Marshal(&presence{
		NodeID:   envConf.NodeID,
		Role:     conf.Role,
		DeviceID: conf.DeviceID,
		IMU:      src != nil,
	})
	e := envConf.MustNewEnv(env.TransportOptions{
		SubTopics:     topics.Inbound(),
		PresenceTopic: topics.Presence,
		Presence:      info,
	})

	node, err := wheel.NewNode(conf, link, e.Publisher, &wheel.ExitRestarter{})
	if err != nil {
		glog.Exitf("create node: %v", err)
	}
	if src != nil {
		filter, err := wheel.CalibrateIMU(ctx, conf, src)
		if err != nil {
			glog.Exitf("calibrate IMU: %v", err)
		}
		node.WithIMU(filter)
	}

	glog.Infof("wheel %s (device %d) started", conf.Role, conf.DeviceID)
	fx.NewLoop().WithPeriod(conf.Period).Add(link, e, node).RunOrFail()
}
