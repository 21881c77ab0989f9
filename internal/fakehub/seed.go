package fakehub

import "encoding/json"

// SampleDevices is a small household: a fan, a light and a lock.
func SampleDevices() []json.RawMessage {
	return []json.RawMessage{
		json.RawMessage(sampleFan),
		json.RawMessage(sampleLight),
		json.RawMessage(sampleLock),
	}
}

const sampleFan = `{
  "id": "6c5b2c1a-9f5e-4a2e-8d0f-1f6f3e0a1b01",
  "deviceId": "2c1d8e3f4a5b6c7d",
  "typeId": "metadevice.device",
  "friendlyName": "Living Room Fan",
  "children": [],
  "description": {
    "defaultImage": "ceiling-fan-snyder-park-icon",
    "device": {
      "defaultName": "Ceiling Fan",
      "deviceClass": "fan",
      "manufacturerName": "Hampton Bay",
      "model": ""
    },
    "functions": [
      {"id": "f-power", "functionClass": "power", "functionInstance": "fan-power", "type": "category",
       "values": [{"name": "on"}, {"name": "off"}]},
      {"id": "f-speed", "functionClass": "fan-speed", "functionInstance": "fan-speed", "type": "category",
       "values": [{"name": "fan-speed-000"}, {"name": "fan-speed-050"}, {"name": "fan-speed-100"}]}
    ]
  },
  "state": {
    "metadeviceId": "6c5b2c1a-9f5e-4a2e-8d0f-1f6f3e0a1b01",
    "values": [
      {"functionClass": "power", "functionInstance": "fan-power", "value": "off", "lastUpdateTime": 1700000000000},
      {"functionClass": "fan-speed", "functionInstance": "fan-speed", "value": "fan-speed-050", "lastUpdateTime": 1700000000000},
      {"functionClass": "wifi-ssid", "value": "HomeNetwork", "lastUpdateTime": 1700000000000}
    ]
  }
}`

const sampleLight = `{
  "id": "0b7e3a52-3e8c-4d61-9b4b-6a1c2f7d8e02",
  "deviceId": "7a8b9c0d1e2f3a4b",
  "typeId": "metadevice.device",
  "friendlyName": "Porch Light",
  "children": [],
  "description": {
    "defaultImage": "a19-e26-color-cct-60w-smd-frosted-icon",
    "device": {
      "defaultName": "Color Bulb",
      "deviceClass": "light",
      "manufacturerName": "Commercial Electric",
      "model": "12A19060WRGBWH2"
    },
    "functions": [
      {"id": "l-power", "functionClass": "power", "type": "category", "values": [{"name": "on"}, {"name": "off"}]},
      {"id": "l-bright", "functionClass": "brightness", "type": "numeric",
       "values": [{"name": "brightness", "range": {"min": 1, "max": 100, "step": 1}}]}
    ]
  },
  "state": {
    "metadeviceId": "0b7e3a52-3e8c-4d61-9b4b-6a1c2f7d8e02",
    "values": [
      {"functionClass": "power", "value": "on", "lastUpdateTime": 1700000000000},
      {"functionClass": "brightness", "value": 80, "lastUpdateTime": 1700000000000}
    ]
  }
}`

const sampleLock = `{
  "id": "5a5d5e04-a6ad-47c0-b9f4-b9fe5c049ef4",
  "deviceId": "0123f95ec14bdb23",
  "typeId": "metadevice.device",
  "friendlyName": "Friendly Name 2",
  "children": [],
  "description": {
    "defaultImage": "keypad-deadbolt-lock-icon",
    "device": {
      "defaultName": "Keypad Deadbolt Lock",
      "deviceClass": "door-lock",
      "manufacturerName": "Defiant",
      "model": "TBD"
    },
    "functions": [
      {"id": "k-lock", "functionClass": "lock-control", "type": "category",
       "values": [{"name": "locked"}, {"name": "unlocked"}]},
      {"id": "k-battery", "functionClass": "battery-level", "type": "numeric",
       "values": [{"name": "battery-level", "range": {"min": 0, "max": 100, "step": 1}}]}
    ]
  },
  "state": {
    "metadeviceId": "5a5d5e04-a6ad-47c0-b9f4-b9fe5c049ef4",
    "values": [
      {"functionClass": "lock-control", "value": "locked", "lastUpdateTime": 1700000000000},
      {"functionClass": "battery-level", "value": 87, "lastUpdateTime": 1700000000000},
      {"functionClass": "wifi-mac-address", "value": "a0:b1:c2:d3:e4:f5", "lastUpdateTime": 1700000000000}
    ]
  }
}`
