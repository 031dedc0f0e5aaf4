package config

// Schema is the JSON schema for validating configuration files
const Schema = `{
    "$schema": "http://json-schema.org/draft-07/schema#",
    "type": "object",
    "additionalProperties": false,
    "properties": {
        "log_level": {
            "type": "string",
            "enum": ["debug", "info", "warn", "error"]
        },
        "log_format": {
            "type": "string",
            "enum": ["json", "console"]
        },
        "temp_dir": {
            "type": "string",
            "description": "Directory where dumps and archives are staged"
        },
        "format": {
            "type": "string",
            "enum": ["bz2", "bzip2", "gz", "gzip", "zst", "zstd"]
        },
        "s3": {
            "type": "object",
            "additionalProperties": false,
            "properties": {
                "endpoint": {"type": "string"},
                "region": {"type": "string"},
                "access_key_id": {"type": "string"},
                "secret_access_key": {"type": "string"},
                "force_path_style": {"type": "boolean"}
            }
        },
        "gcs": {
            "type": "object",
            "additionalProperties": false,
            "properties": {
                "project_id": {"type": "string"},
                "endpoint": {"type": "string"},
                "key_file": {"type": "string"},
                "client_email": {"type": "string"},
                "private_key": {"type": "string"}
            }
        },
        "dumper": {
            "type": "object",
            "additionalProperties": false,
            "properties": {
                "postgres_dsn": {"type": "string"},
                "pgpass_file": {"type": "string"}
            }
        },
        "prune": {
            "type": "object",
            "additionalProperties": false,
            "properties": {
                "backupfile_prefix": {
                    "type": "string",
                    "pattern": "^[a-zA-Z0-9_.-]+$"
                },
                "delete_divide": {
                    "type": "integer",
                    "minimum": 1
                },
                "delete_target_days_left": {
                    "type": "integer",
                    "minimum": 0
                },
                "concurrency": {
                    "type": "integer",
                    "minimum": 1
                }
            },
            "required": ["delete_divide", "delete_target_days_left"]
        },
        "healthcheck_url": {
            "type": "string",
            "pattern": "^https?://"
        },
        "metrics": {
            "type": "object",
            "additionalProperties": false,
            "properties": {
                "pushgateway_url": {
                    "type": "string",
                    "pattern": "^https?://"
                },
                "job": {"type": "string"}
            }
        }
    }
}`
