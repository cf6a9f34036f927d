package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
	"github.com/gorilla/mux"
	"github.com/spf13/cast"

	"github.com/groundlink-io/groundlink/internal/gcs/errdefs"
	"github.com/groundlink-io/groundlink/internal/gcs/mav"
	"github.com/groundlink-io/groundlink/internal/gcs/transport"
	"github.com/groundlink-io/groundlink/internal/gcs/vehicle"
)

// response is the uniform envelope of every gateway reply.
type response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type connectRequest struct {
	transport.Options
	SigningPassphrase string `json:"signingPassphrase,omitempty"`
}

type connectionView struct {
	Connected bool   `json:"connected"`
	Endpoint  string `json:"endpoint,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Vehicles  int    `json:"vehicles"`
}

type vehicleView struct {
	Key         string           `json:"key"`
	Armed       bool             `json:"armed"`
	LandedState string           `json:"landedState"`
	Position    vehicle.Position `json:"position"`
	Attitude    vehicle.Attitude `json:"attitude"`
	Messages    []string         `json:"messages,omitempty"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &errdefs.InvalidArgumentError{Field: "body", Detail: err.Error()})
		return
	}

	if err := s.manager.Connect(r.Context(), &req.Options, req.SigningPassphrase); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	if err := s.manager.Disconnect(force); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true})
}

func (s *Server) handleConnectionStatus(w http.ResponseWriter, r *http.Request) {
	view := connectionView{}
	if conn, ok := s.manager.Current(); ok {
		view.Connected = true
		view.Endpoint = conn.Endpoint()
		view.Kind = conn.Kind()
		view.Vehicles = conn.Registry().Count()
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: view})
}

func (s *Server) handleVehicles(w http.ResponseWriter, r *http.Request) {
	conn, ok := s.manager.Current()
	if !ok {
		writeJSON(w, http.StatusOK, response{Success: true, Data: []vehicleView{}})
		return
	}

	views := []vehicleView{}
	for _, sess := range conn.Registry().GetAll() {
		views = append(views, viewOf(sess))
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: views})
}

func (s *Server) handleVehicle(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	view := viewOf(sess)
	view.Messages = sess.MessageNames()
	writeJSON(w, http.StatusOK, response{Success: true, Data: view})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	params := map[string]any{}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(w, &errdefs.InvalidArgumentError{Field: "body", Detail: err.Error()})
			return
		}
	}

	if err := vehicle.RunCommand(r.Context(), sess, mux.Vars(r)["command"], params); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true})
}

// sendRequest is the raw message escape hatch for message types the
// command API does not cover.
type sendRequest struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	conn, ok := s.manager.Current()
	if !ok {
		writeError(w, errdefs.ErrNotConnected)
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &errdefs.InvalidArgumentError{Field: "body", Detail: err.Error()})
		return
	}

	msg, err := buildMessage(req)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := conn.Send(msg); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true})
}

func buildMessage(req sendRequest) (message.Message, error) {
	d := req.Data

	switch req.Type {
	case "commandLong":
		return &common.MessageCommandLong{
			TargetSystem:    uint8(cast.ToUint(d["targetSystem"])),
			TargetComponent: uint8(cast.ToUint(d["targetComponent"])),
			Command:         common.MAV_CMD(cast.ToUint32(d["command"])),
			Confirmation:    uint8(cast.ToUint(d["confirmation"])),
			Param1:          float32(cast.ToFloat64(d["param1"])),
			Param2:          float32(cast.ToFloat64(d["param2"])),
			Param3:          float32(cast.ToFloat64(d["param3"])),
			Param4:          float32(cast.ToFloat64(d["param4"])),
			Param5:          float32(cast.ToFloat64(d["param5"])),
			Param6:          float32(cast.ToFloat64(d["param6"])),
			Param7:          float32(cast.ToFloat64(d["param7"])),
		}, nil

	case "commandInt":
		return &common.MessageCommandInt{
			TargetSystem:    uint8(cast.ToUint(d["targetSystem"])),
			TargetComponent: uint8(cast.ToUint(d["targetComponent"])),
			Frame:           common.MAV_FRAME(cast.ToUint32(d["frame"])),
			Command:         common.MAV_CMD(cast.ToUint32(d["command"])),
			Param1:          float32(cast.ToFloat64(d["param1"])),
			Param2:          float32(cast.ToFloat64(d["param2"])),
			Param3:          float32(cast.ToFloat64(d["param3"])),
			Param4:          float32(cast.ToFloat64(d["param4"])),
			X:               cast.ToInt32(d["x"]),
			Y:               cast.ToInt32(d["y"]),
			Z:               float32(cast.ToFloat64(d["z"])),
		}, nil

	case "heartbeat":
		return &common.MessageHeartbeat{
			Type:           common.MAV_TYPE(cast.ToUint32(d["type"])),
			Autopilot:      common.MAV_AUTOPILOT(cast.ToUint32(d["autopilot"])),
			BaseMode:       common.MAV_MODE_FLAG(cast.ToUint32(d["baseMode"])),
			CustomMode:     cast.ToUint32(d["customMode"]),
			SystemStatus:   common.MAV_STATE(cast.ToUint32(d["systemStatus"])),
			MavlinkVersion: uint8(cast.ToUint(d["mavlinkVersion"])),
		}, nil

	case "manualControl":
		return &common.MessageManualControl{
			Target:  uint8(cast.ToUint(d["target"])),
			X:       int16(cast.ToInt(d["x"])),
			Y:       int16(cast.ToInt(d["y"])),
			Z:       int16(cast.ToInt(d["z"])),
			R:       int16(cast.ToInt(d["r"])),
			Buttons: uint16(cast.ToUint(d["buttons"])),
		}, nil

	case "ping":
		return &common.MessagePing{
			TimeUsec:        cast.ToUint64(d["timeUsec"]),
			Seq:             cast.ToUint32(d["seq"]),
			TargetSystem:    uint8(cast.ToUint(d["targetSystem"])),
			TargetComponent: uint8(cast.ToUint(d["targetComponent"])),
		}, nil

	default:
		return nil, &errdefs.InvalidArgumentError{Field: "type", Detail: "unknown message type " + req.Type}
	}
}

// session resolves the {vehicle} path variable to a live session.
func (s *Server) session(r *http.Request) (*vehicle.Session, error) {
	conn, ok := s.manager.Current()
	if !ok {
		return nil, errdefs.ErrNotConnected
	}

	key, err := mav.ParseVehicleKey(mux.Vars(r)["vehicle"])
	if err != nil {
		return nil, err
	}

	sess, ok := conn.Registry().Get(key)
	if !ok {
		return nil, &errdefs.InvalidArgumentError{Field: "vehicle", Detail: "unknown vehicle " + key.String()}
	}
	return sess, nil
}

func viewOf(sess *vehicle.Session) vehicleView {
	pos, att, armed := sess.Snapshot()
	return vehicleView{
		Key:         sess.Key().String(),
		Armed:       armed,
		LandedState: sess.LandedState(),
		Position:    pos,
		Attitude:    att,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), response{Success: false, Message: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errdefs.IsInvalidArgument(err):
		return http.StatusBadRequest
	case errors.Is(err, errdefs.ErrAlreadyConnected),
		errors.Is(err, errdefs.ErrNotConnected),
		errors.Is(err, errdefs.ErrConnectionClosed):
		return http.StatusConflict
	case errdefs.IsDenied(err):
		return http.StatusUnprocessableEntity
	case errdefs.IsTimeout(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
