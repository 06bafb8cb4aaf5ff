package session

import (
	"encoding/json"
	"sync"

	pion "github.com/pion/webrtc/v4"

	"github.com/NaveenKathirM/smartclassroom/internal/config"
)

// newPeerConnection builds a pion peer connection from the configured ICE
// servers.
func newPeerConnection(cfg *config.Config) (*pion.PeerConnection, error) {
	iceServers := []pion.ICEServer{{URLs: cfg.GetSTUNServers()}}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if turnServers != nil && cfg.ForceRelay {
		policy = pion.ICETransportPolicyRelay
	}

	pc, err := pion.NewPeerConnection(pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	})
	if err != nil {
		return nil, NewError("create peer connection", err)
	}
	return pc, nil
}

// PionTransport implements MediaTransport on a pion/webrtc peer connection.
type PionTransport struct {
	pc        *pion.PeerConnection
	closeOnce sync.Once
	closeErr  error
}

// NewPionTransport wires a peer connection for one remote peer. A presenter
// passes its local capture tracks; a viewer passes none and receives the
// presenter's tracks through onTrack.
func NewPionTransport(cfg *config.Config, tracks []pion.TrackLocal, onTrack func(*pion.TrackRemote)) (*PionTransport, error) {
	pc, err := newPeerConnection(cfg)
	if err != nil {
		return nil, err
	}

	if len(tracks) == 0 {
		// Receive-only legs still need transceivers so the offer/answer
		// carries media sections.
		for _, kind := range []pion.RTPCodecType{pion.RTPCodecTypeVideo, pion.RTPCodecTypeAudio} {
			if _, err := pc.AddTransceiverFromKind(kind, pion.RTPTransceiverInit{
				Direction: pion.RTPTransceiverDirectionRecvonly,
			}); err != nil {
				pc.Close()
				return nil, NewError("add transceiver", err)
			}
		}
	}

	for _, track := range tracks {
		if _, err := pc.AddTrack(track); err != nil {
			pc.Close()
			return nil, NewError("add local track", err)
		}
	}

	if onTrack != nil {
		pc.OnTrack(func(track *pion.TrackRemote, _ *pion.RTPReceiver) {
			onTrack(track)
		})
	}

	return &PionTransport{pc: pc}, nil
}

// PionFactory returns a TransportFactory producing one transport per peer.
func PionFactory(cfg *config.Config, tracks []pion.TrackLocal, onTrack func(*pion.TrackRemote)) TransportFactory {
	return func(string) (MediaTransport, error) {
		return NewPionTransport(cfg, tracks, onTrack)
	}
}

// PresenterTracks prepares the local audio and video tracks a presenter
// publishes. The capture pipeline feeding them is up to the caller.
func PresenterTracks() ([]pion.TrackLocal, error) {
	video, err := pion.NewTrackLocalStaticSample(
		pion.RTPCodecCapability{MimeType: pion.MimeTypeVP8}, "video", "presentation")
	if err != nil {
		return nil, WrapError("prepare video track", ErrMediaAcquisition, err.Error())
	}

	audio, err := pion.NewTrackLocalStaticSample(
		pion.RTPCodecCapability{MimeType: pion.MimeTypeOpus}, "audio", "presentation")
	if err != nil {
		return nil, WrapError("prepare audio track", ErrMediaAcquisition, err.Error())
	}

	return []pion.TrackLocal{video, audio}, nil
}

func (t *PionTransport) CreateOffer() (json.RawMessage, error) {
	offer, err := t.pc.CreateOffer(nil)
	if err != nil {
		return nil, NewError("create offer", err)
	}

	if err = t.pc.SetLocalDescription(offer); err != nil {
		return nil, NewError("set local description", err)
	}

	return json.Marshal(t.pc.LocalDescription())
}

func (t *PionTransport) CreateAnswer(offer json.RawMessage) (json.RawMessage, error) {
	var desc pion.SessionDescription
	if err := json.Unmarshal(offer, &desc); err != nil {
		return nil, NewError("parse offer", err)
	}

	if err := t.pc.SetRemoteDescription(desc); err != nil {
		return nil, NewError("set remote description", err)
	}

	answer, err := t.pc.CreateAnswer(nil)
	if err != nil {
		return nil, NewError("create answer", err)
	}

	if err = t.pc.SetLocalDescription(answer); err != nil {
		return nil, NewError("set local description", err)
	}

	return json.Marshal(t.pc.LocalDescription())
}

func (t *PionTransport) AcceptAnswer(answer json.RawMessage) error {
	var desc pion.SessionDescription
	if err := json.Unmarshal(answer, &desc); err != nil {
		return NewError("parse answer", err)
	}

	if err := t.pc.SetRemoteDescription(desc); err != nil {
		return NewError("set remote description", err)
	}
	return nil
}

func (t *PionTransport) AddICECandidate(candidate json.RawMessage) error {
	var ice pion.ICECandidateInit
	if err := json.Unmarshal(candidate, &ice); err != nil {
		return NewError("parse ICE candidate", err)
	}
	if err := t.pc.AddICECandidate(ice); err != nil {
		return NewError("add ICE candidate", err)
	}
	return nil
}

func (t *PionTransport) OnICECandidate(fn func(json.RawMessage)) {
	t.pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		payload, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		fn(payload)
	})
}

func (t *PionTransport) OnStateChange(fn func(TransportState)) {
	t.pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		switch state {
		case pion.PeerConnectionStateConnecting:
			fn(TransportConnecting)
		case pion.PeerConnectionStateConnected:
			fn(TransportConnected)
		case pion.PeerConnectionStateFailed:
			fn(TransportFailed)
		case pion.PeerConnectionStateClosed:
			fn(TransportClosed)
		}
	})
}

func (t *PionTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.pc.Close()
	})
	return t.closeErr
}
