package onnx

// workerScriptName is written under the configured work directory on Start.
const workerScriptName = "diarize_onnx_worker.py"

// workerScript loads both models with onnxruntime, announces which ones are
// usable, then answers classify/embed requests until stdin closes.
const workerScript = `#!/usr/bin/env python3
import argparse
import base64
import json
import sys

import numpy as np
import onnxruntime as ort


def load(path):
    if not path:
        return None, "no model path configured"
    try:
        return ort.InferenceSession(path, providers=["CPUExecutionProvider"]), None
    except Exception as exc:
        return None, str(exc)


def decode(data):
    return np.frombuffer(base64.b64decode(data), dtype="<f4")


def encode(arr):
    arr = np.ascontiguousarray(arr, dtype="<f4")
    return base64.b64encode(arr.tobytes()).decode("ascii")


def respond(payload):
    sys.stdout.write(json.dumps(payload) + "\n")
    sys.stdout.flush()


def classify(session, samples):
    name = session.get_inputs()[0].name
    out = session.run(None, {name: samples.reshape(1, 1, -1)})[0]
    return out.reshape(out.shape[-2], out.shape[-1])


def embed(session, samples):
    name = session.get_inputs()[0].name
    out = session.run(None, {name: samples.reshape(1, -1)})[0]
    return out.reshape(-1)


def main():
    parser = argparse.ArgumentParser()
    parser.add_argument("--segmentation", default="")
    parser.add_argument("--embedding", default="")
    args = parser.parse_args()

    seg, seg_err = load(args.segmentation)
    emb, emb_err = load(args.embedding)
    errors = {}
    if seg_err:
        errors["segmentation"] = seg_err
    if emb_err:
        errors["embedding"] = emb_err
    respond({"event": "ready", "segmentation": seg is not None, "embedding": emb is not None, "errors": errors})

    for line in sys.stdin:
        line = line.strip()
        if not line:
            continue
        req = json.loads(line)
        rid = req.get("id")
        try:
            samples = decode(req["data"])
            op = req.get("op")
            if op == "classify":
                if seg is None:
                    raise RuntimeError("segmentation model not loaded")
                out = classify(seg, samples)
            elif op == "embed":
                if emb is None:
                    raise RuntimeError("embedding model not loaded")
                out = embed(emb, samples)
            else:
                raise ValueError("unknown op %r" % op)
            respond({"id": rid, "shape": list(out.shape), "data": encode(out)})
        except Exception as exc:
            respond({"id": rid, "error": str(exc)})


if __name__ == "__main__":
    main()
`
